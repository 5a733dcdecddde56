package auth

import "errors"

var (
	ErrTokenInvalid = errors.New("invalid or expired reset token")
	ErrOTPInvalid   = errors.New("invalid otp code")
	ErrTokenType    = errors.New("invalid token type")
	ErrOTPExpired   = errors.New("otp code has expired")
	ErrOTPAttempts  = errors.New("too many failed attempts")
	ErrOTPWrongDept = errors.New("otp does not match the selected department")
)

var reasons = map[error]string{
	ErrTokenInvalid: "Invalid or expired reset token. Please request a new password reset.",
	ErrOTPInvalid:   "Invalid OTP code",
	ErrTokenType:    "Invalid token type",
	ErrOTPExpired:   "OTP code has expired",
	ErrOTPAttempts:  "Too many failed attempts",
	ErrOTPWrongDept: "OTP does not match the selected department.",
}

// Reason returns the user-facing message for a recovery failure, or "" when
// err is not one.
func Reason(err error) string {
	for target, msg := range reasons {
		if errors.Is(err, target) {
			return msg
		}
	}
	return ""
}
