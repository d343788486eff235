package cloud

// IdentifierKind tells how an account is identified at login.
type IdentifierKind int

const (
	EmailIdentifier IdentifierKind = iota
	MobileIdentifier
)

// Identifier is an email address or a mobile phone number. The login flow
// is the same for both; only paths and messages differ.
type Identifier struct {
	Kind  IdentifierKind
	Value string
}

// Email returns an email identifier.
func Email(address string) Identifier {
	return Identifier{Kind: EmailIdentifier, Value: address}
}

// Mobile returns a mobile phone identifier.
func Mobile(number string) Identifier {
	return Identifier{Kind: MobileIdentifier, Value: number}
}

// key is both the path segment and the request body key.
func (id Identifier) key() string {
	if id.Kind == MobileIdentifier {
		return "mobile"
	}
	return "email"
}

func (id Identifier) missingMessage() string {
	if id.Kind == MobileIdentifier {
		return "Mobile number required"
	}
	return "Email required"
}

func (id Identifier) missingCredentialsMessage() string {
	if id.Kind == MobileIdentifier {
		return "Mobile number and password are required"
	}
	return "Email and password are required"
}

func (id Identifier) registrationPath(endpoint string) string {
	return "/v3/userregistration/" + id.key() + "/" + endpoint
}
