package cognito

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/vestibule/pkg/observability"
)

var tracer = otel.Tracer("vestibule/cognito")

// api is the subset of the Cognito identity provider API the client
// uses. Satisfied by *cognitoidentityprovider.Client.
type api interface {
	InitiateAuth(ctx context.Context, in *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
	GetUser(ctx context.Context, in *cip.GetUserInput, optFns ...func(*cip.Options)) (*cip.GetUserOutput, error)
	SignUp(ctx context.Context, in *cip.SignUpInput, optFns ...func(*cip.Options)) (*cip.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, in *cip.ConfirmSignUpInput, optFns ...func(*cip.Options)) (*cip.ConfirmSignUpOutput, error)
	UpdateUserAttributes(ctx context.Context, in *cip.UpdateUserAttributesInput, optFns ...func(*cip.Options)) (*cip.UpdateUserAttributesOutput, error)
}

// Client talks to one Cognito user pool app client.
type Client struct {
	api     api
	config  Config
	metrics *observability.Metrics
}

// NewClient creates a Cognito client for the configured user pool.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	var awsCfg aws.Config
	var err error

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		// Static credentials (local stacks or explicit keys)
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKey,
				cfg.SecretKey,
				"",
			)),
		)
	} else {
		// Default credential chain (IAM roles, env vars, etc.)
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := cip.NewFromConfig(awsCfg, func(o *cip.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &Client{api: client, config: cfg}, nil
}

// newClientWithAPI wires a caller-supplied API, used by tests.
func newClientWithAPI(a api, cfg Config) *Client {
	return &Client{api: a, config: cfg}
}

// WithMetrics attaches provider-call metrics and returns the client.
func (c *Client) WithMetrics(m *observability.Metrics) *Client {
	c.metrics = m
	return c
}

// observe records one provider round trip when metrics are attached.
func (c *Client) observe(operation string, err error, start time.Time) {
	if c.metrics != nil {
		c.metrics.ObserveProviderCall(operation, err, time.Since(start))
	}
}

// Authenticate runs the USER_PASSWORD_AUTH flow and returns the issued
// token set. The password is never logged or recorded on spans.
func (c *Client) Authenticate(ctx context.Context, username, password string) (Tokens, error) {
	ctx, span := tracer.Start(ctx, "Cognito.InitiateAuth",
		trace.WithAttributes(
			attribute.String("cognito.operation", "InitiateAuth"),
			attribute.String("cognito.user_pool_id", c.config.UserPoolID),
		),
	)
	defer span.End()

	params := map[string]string{
		"USERNAME": username,
		"PASSWORD": password,
	}
	if c.config.ClientSecret != "" {
		params["SECRET_HASH"] = SecretHash(username, c.config.ClientID, c.config.ClientSecret)
	}

	start := time.Now()
	out, err := c.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow:       types.AuthFlowTypeUserPasswordAuth,
		ClientId:       aws.String(c.config.ClientID),
		AuthParameters: params,
	})
	c.observe("InitiateAuth", err, start)
	if err != nil {
		span.SetStatus(codes.Error, "authentication failed")
		return Tokens{}, err
	}

	result := out.AuthenticationResult
	if result == nil {
		// A challenge response (MFA, NEW_PASSWORD_REQUIRED) has no token
		// set; this layer does not drive challenge flows.
		span.SetStatus(codes.Error, "challenge required")
		return Tokens{}, fmt.Errorf("cognito: authentication requires challenge %q", out.ChallengeName)
	}

	return Tokens{
		AccessToken:  aws.ToString(result.AccessToken),
		IDToken:      aws.ToString(result.IdToken),
		RefreshToken: aws.ToString(result.RefreshToken),
	}, nil
}

// GetUser fetches the current attribute list for the holder of the
// access token.
func (c *Client) GetUser(ctx context.Context, accessToken string) ([]Attribute, error) {
	ctx, span := tracer.Start(ctx, "Cognito.GetUser",
		trace.WithAttributes(
			attribute.String("cognito.operation", "GetUser"),
			attribute.String("cognito.user_pool_id", c.config.UserPoolID),
		),
	)
	defer span.End()

	start := time.Now()
	out, err := c.api.GetUser(ctx, &cip.GetUserInput{
		AccessToken: aws.String(accessToken),
	})
	c.observe("GetUser", err, start)
	if err != nil {
		span.SetStatus(codes.Error, "get user failed")
		return nil, err
	}

	// The pool username arrives beside the attribute list; fold it in
	// so callers see a single uniform set.
	attrs := make([]Attribute, 0, len(out.UserAttributes)+1)
	attrs = append(attrs, Attribute{Name: "username", Value: aws.ToString(out.Username)})
	for _, a := range out.UserAttributes {
		attrs = append(attrs, Attribute{
			Name:  aws.ToString(a.Name),
			Value: aws.ToString(a.Value),
		})
	}
	return attrs, nil
}

// SignUp registers a new user with the given base attributes.
func (c *Client) SignUp(ctx context.Context, username, password string, attrs []Attribute) (*SignUpResult, error) {
	ctx, span := tracer.Start(ctx, "Cognito.SignUp",
		trace.WithAttributes(
			attribute.String("cognito.operation", "SignUp"),
			attribute.String("cognito.user_pool_id", c.config.UserPoolID),
		),
	)
	defer span.End()

	in := &cip.SignUpInput{
		ClientId:       aws.String(c.config.ClientID),
		Username:       aws.String(username),
		Password:       aws.String(password),
		UserAttributes: toAttributeTypes(attrs),
	}
	if c.config.ClientSecret != "" {
		in.SecretHash = aws.String(SecretHash(username, c.config.ClientID, c.config.ClientSecret))
	}

	start := time.Now()
	out, err := c.api.SignUp(ctx, in)
	c.observe("SignUp", err, start)
	if err != nil {
		span.SetStatus(codes.Error, "sign up failed")
		return nil, err
	}

	result := &SignUpResult{
		UserSub:       aws.ToString(out.UserSub),
		UserConfirmed: out.UserConfirmed,
	}
	if out.CodeDeliveryDetails != nil {
		result.CodeDeliveryDestination = aws.ToString(out.CodeDeliveryDetails.Destination)
	}
	return result, nil
}

// ConfirmSignUp validates a new account with the confirmation code
// Cognito delivered at sign-up.
func (c *Client) ConfirmSignUp(ctx context.Context, code, username string) error {
	ctx, span := tracer.Start(ctx, "Cognito.ConfirmSignUp",
		trace.WithAttributes(
			attribute.String("cognito.operation", "ConfirmSignUp"),
			attribute.String("cognito.user_pool_id", c.config.UserPoolID),
		),
	)
	defer span.End()

	in := &cip.ConfirmSignUpInput{
		ClientId:         aws.String(c.config.ClientID),
		Username:         aws.String(username),
		ConfirmationCode: aws.String(code),
	}
	if c.config.ClientSecret != "" {
		in.SecretHash = aws.String(SecretHash(username, c.config.ClientID, c.config.ClientSecret))
	}

	start := time.Now()
	_, err := c.api.ConfirmSignUp(ctx, in)
	c.observe("ConfirmSignUp", err, start)
	if err != nil {
		span.SetStatus(codes.Error, "confirm sign up failed")
		return err
	}
	return nil
}

// UpdateAttributes pushes attribute changes for the holder of the
// access token. Cognito is the source of truth for profile data, so
// no local copy is refreshed here.
func (c *Client) UpdateAttributes(ctx context.Context, accessToken string, attrs []Attribute) error {
	ctx, span := tracer.Start(ctx, "Cognito.UpdateUserAttributes",
		trace.WithAttributes(
			attribute.String("cognito.operation", "UpdateUserAttributes"),
			attribute.String("cognito.user_pool_id", c.config.UserPoolID),
		),
	)
	defer span.End()

	start := time.Now()
	_, err := c.api.UpdateUserAttributes(ctx, &cip.UpdateUserAttributesInput{
		AccessToken:    aws.String(accessToken),
		UserAttributes: toAttributeTypes(attrs),
	})
	c.observe("UpdateUserAttributes", err, start)
	if err != nil {
		span.SetStatus(codes.Error, "update attributes failed")
		return err
	}
	return nil
}

// SecretHash computes the Cognito SECRET_HASH for an app client with a
// secret: base64(HMAC-SHA256(username + clientID, clientSecret)).
func SecretHash(username, clientID, clientSecret string) string {
	mac := hmac.New(sha256.New, []byte(clientSecret))
	mac.Write([]byte(username + clientID))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func toAttributeTypes(attrs []Attribute) []types.AttributeType {
	out := make([]types.AttributeType, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, types.AttributeType{
			Name:  aws.String(a.Name),
			Value: aws.String(a.Value),
		})
	}
	return out
}
