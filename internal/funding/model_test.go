package funding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerificationPrecondition(t *testing.T) {
	assert.Equal(t, VerificationPending, verificationPrecondition(VerificationInReview))
	assert.Equal(t, VerificationInReview, verificationPrecondition(VerificationApproved))
	assert.Equal(t, VerificationInReview, verificationPrecondition(VerificationRejected))

	// Pending is the initial state, never a transition target.
	assert.Equal(t, VerificationStatus(""), verificationPrecondition(VerificationPending))
	assert.Equal(t, VerificationStatus(""), verificationPrecondition(VerificationStatus("bogus")))
}
