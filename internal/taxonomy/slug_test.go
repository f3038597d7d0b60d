package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Tech", "tech"},
		{"spaces", "Energía Solar", "energia-solar"},
		{"accents", "Educación Ambiental", "educacion-ambiental"},
		{"enie", "Año Nuevo", "ano-nuevo"},
		{"punctuation", "Reciclaje: vidrio & papel", "reciclaje-vidrio-papel"},
		{"collapses dashes", "a  --  b", "a-b"},
		{"trims", "  ¡Hola!  ", "hola"},
		{"empty", "!!!", "item"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Slugify(tc.in))
		})
	}
}

func TestSlugWithSuffix(t *testing.T) {
	s := SlugWithSuffix("Energía Solar")
	assert.Len(t, s, len("energia-solar")+9)
	assert.Contains(t, s, "energia-solar-")

	// Two calls must disambiguate differently.
	assert.NotEqual(t, s, SlugWithSuffix("Energía Solar"))
}
