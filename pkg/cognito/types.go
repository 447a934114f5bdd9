package cognito

// Tokens is the short-lived credential bundle Cognito issues per
// successful authentication. It lives in the request session and is
// discarded at logout.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
}

// Attribute is a single user pool attribute as Cognito returns it:
// a flat name/value pair with a provider-typed string value.
type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SignUpResult is the provider response to a sign-up call.
type SignUpResult struct {
	UserSub       string `json:"user_sub"`
	UserConfirmed bool   `json:"user_confirmed"`
	// Destination the confirmation code was delivered to, when Cognito
	// reports one (masked email or phone number).
	CodeDeliveryDestination string `json:"code_delivery_destination,omitempty"`
}

// Config holds the user pool identifiers and AWS credentials for one
// app client.
type Config struct {
	UserPoolID   string
	ClientID     string
	ClientSecret string // optional; enables SECRET_HASH
	Region       string

	// Static credentials; when empty the default AWS credential chain
	// is used (env vars, shared config, IAM role).
	AccessKey string
	SecretKey string

	// Endpoint override for local stacks (cognito-local, moto).
	Endpoint string
}
