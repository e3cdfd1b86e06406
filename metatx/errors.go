package metatx

import (
	"errors"
	"strings"
)

var (
	ErrSignerUnavailable   = errors.New("no compatible signer available")
	ErrWrongNetwork        = errors.New("signer is connected to a different network than the domain")
	ErrUserRejected        = errors.New("user rejected the signature request")
	ErrMalformedSignature  = errors.New("malformed signature")
	ErrSignerMismatch      = errors.New("recovered signer does not match sender")
	ErrNonceMismatch       = errors.New("meta-transaction nonce does not match on-chain nonce")
	ErrGasEstimationFailed = errors.New("gas estimation failed")
	ErrSubmissionReverted  = errors.New("relay submission reverted")
	ErrEmptyState          = errors.New("contract has no state set yet")
)

// nonceRevertReasons are the contract rejection messages caused by a stale or
// already consumed nonce. A stale nonce changes the signed digest, so the
// contract usually reports it as a signer mismatch.
// Relayer account errors such as "nonce too low" are not listed.
var nonceRevertReasons = []string{
	"signer and signature do not match",
	"invalid nonce",
	"nonce mismatch",
}

// IsNonceMismatch reports whether err is a contract rejection caused by the
// meta-transaction nonce. It only classifies, the error itself is left as is.
func IsNonceMismatch(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNonceMismatch) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, reason := range nonceRevertReasons {
		if strings.Contains(msg, reason) {
			return true
		}
	}
	return false
}
