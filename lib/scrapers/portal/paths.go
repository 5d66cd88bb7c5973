package portal

// candidate login endpoints, probed in order when the main page has no login form.
var DefaultLoginPaths = []string{
	"Login.aspx?r=s",
	"/login",
	"/signin",
	"/auth/login",
	"/user/login",
}

// candidate attendance pages, every one of them is probed.
var DefaultPagePaths = []string{
	"TakeAttendanceStd.aspx",
	"/attendance",
	"/qr",
	"/qrcode",
	"/scan",
	"/checkin",
}

var DefaultImageSelectors = []ImageSelector{
	{Attr: "src", Contains: "qr"},
	{Attr: "src", Contains: "QR"},
	{Attr: "src", Contains: "attendance"},
	{Attr: "alt", Contains: "QR"},
	{Attr: "alt", Contains: "qr"},
	{Attr: "alt", Contains: "attendance"},
	{Attr: "alt", Contains: "code"},
}

// an input with one of these in its name marks the enclosing form as a login form.
var loginFormInputNames = []string{"username", "user", "email", "id"}

var usernameFieldHints = []string{"user", "email", "id"}
var passwordFieldHints = []string{"pass"}

// inputs of these types never take a credential, hidden ones are posted back
// as they are.
var nonCredentialInputTypes = map[string]bool{
	"hidden":   true,
	"submit":   true,
	"button":   true,
	"image":    true,
	"reset":    true,
	"checkbox": true,
	"radio":    true,
}

const (
	defaultUsernameField = "username"
	defaultPasswordField = "password"
)
