package errors

type (
	HandlersFoundNilArgument struct {
		Msg string
	}
)

func (e *HandlersFoundNilArgument) Error() string {
	return e.Msg
}

// authMessages maps identity failure codes to the copy shown to the client.
// Unknown codes fall through to a generic message so provider internals never
// leak to the login form.
var authMessages = map[string]string{
	"auth/invalid-credential":     "Incorrect email or password.",
	"auth/user-not-found":         "Incorrect email or password.",
	"auth/wrong-password":         "Incorrect email or password.",
	"auth/invalid-email":          "That email address is not valid.",
	"auth/email-already-in-use":   "An account with this email already exists.",
	"auth/weak-password":          "Password should be at least 6 characters.",
	"auth/too-many-requests":      "Too many attempts. Please try again later.",
	"auth/network-request-failed": "Network error. Check your connection and try again.",
}

// AuthMessage resolves a user-facing message for an identity failure code.
func AuthMessage(code string) string {
	if msg, ok := authMessages[code]; ok {
		return msg
	}
	return "Something went wrong. Please try again."
}
