package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/platinummonkey/vestibule/pkg/cognito"
	"github.com/platinummonkey/vestibule/pkg/observability"
	"github.com/platinummonkey/vestibule/pkg/userstore"
)

// Provider is the identity provider client the backend drives.
// Satisfied by *cognito.Client.
type Provider interface {
	Authenticate(ctx context.Context, username, password string) (cognito.Tokens, error)
	GetUser(ctx context.Context, accessToken string) ([]cognito.Attribute, error)
	SignUp(ctx context.Context, username, password string, attrs []cognito.Attribute) (*cognito.SignUpResult, error)
	ConfirmSignUp(ctx context.Context, code, username string) error
	UpdateAttributes(ctx context.Context, accessToken string, attrs []cognito.Attribute) error
}

// Backend authenticates a credential pair against the identity
// provider. A nil User with a nil error means the credential was
// rejected; a non-nil error means the attempt could not be judged.
type Backend interface {
	Authenticate(ctx context.Context, username, password string) (*User, error)
}

// Options configures a CognitoBackend.
type Options struct {
	// Mapping from provider attribute names to local field names.
	// Nil selects DefaultAttributeMap.
	Mapping AttributeMap

	// AutoProvision creates a local record on first successful login.
	// When false, a provider-accepted credential with no local record
	// still yields a rejected login.
	AutoProvision bool

	Logger *observability.Logger

	// Metrics counts provisioned records when set.
	Metrics *observability.Metrics
}

// CognitoBackend is the concrete Backend over a Cognito user pool and
// a local user store.
type CognitoBackend struct {
	provider      Provider
	store         userstore.Store
	mapping       AttributeMap
	autoProvision bool
	logger        *observability.Logger
	metrics       *observability.Metrics
}

// NewCognitoBackend wires the backend from its collaborators.
func NewCognitoBackend(provider Provider, store userstore.Store, opts Options) *CognitoBackend {
	mapping := opts.Mapping
	if mapping == nil {
		mapping = DefaultAttributeMap()
	}
	logger := opts.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &CognitoBackend{
		provider:      provider,
		store:         store,
		mapping:       mapping,
		autoProvision: opts.AutoProvision,
		logger:        logger,
		metrics:       opts.Metrics,
	}
}

// Authenticate runs one login attempt end to end: provider auth,
// attribute fetch, mapping, local record provisioning, token
// attachment. Credentials are never logged.
func (b *CognitoBackend) Authenticate(ctx context.Context, username, password string) (*User, error) {
	tokens, err := b.provider.Authenticate(ctx, username, password)
	if err != nil {
		if cognito.IsAuthFailure(err) {
			b.logger.WithField("username", username).Debug("authentication rejected by provider")
			return nil, nil
		}
		return nil, fmt.Errorf("provider authentication: %w", err)
	}

	attrs, err := b.provider.GetUser(ctx, tokens.AccessToken)
	if err != nil {
		if cognito.IsAuthFailure(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch user attributes: %w", err)
	}

	fields, extra := MapAttributes(attrs, b.mapping)

	// Mapped fields without a backing column join the auxiliary set
	// rather than the structured store.
	stored := userstore.Fields{}
	for name, value := range fields {
		if userstore.HasColumn(name) {
			stored[name] = value
		} else {
			extra[name] = value
		}
	}

	record, err := b.provisionRecord(ctx, username, stored)
	if err != nil {
		return nil, err
	}
	if record == nil {
		b.logger.WithField("username", username).Info("no local record and auto-provisioning disabled")
		return nil, nil
	}

	return &User{Record: record, Extra: extra, Tokens: tokens}, nil
}

// provisionRecord upserts or updates the local record per the
// auto-provision policy. Returns (nil, nil) when provisioning is
// disabled and no record exists.
func (b *CognitoBackend) provisionRecord(ctx context.Context, username string, fields userstore.Fields) (*userstore.User, error) {
	if b.autoProvision {
		record, err := b.store.Upsert(ctx, username, fields)
		if err != nil {
			return nil, fmt.Errorf("upsert user record: %w", err)
		}
		b.countProvisioned()
		return record, nil
	}

	record, err := b.store.Get(ctx, username)
	if errors.Is(err, userstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch user record: %w", err)
	}

	if err := fields.Apply(record); err != nil {
		return nil, err
	}
	if err := b.store.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("save user record: %w", err)
	}
	b.countProvisioned()
	return record, nil
}

func (b *CognitoBackend) countProvisioned() {
	if b.metrics != nil {
		b.metrics.ProvisionedUsers.Inc()
	}
}

// CurrentUser resolves the principal behind an access token. The same
// two-tier policy as Authenticate applies: a token the provider no
// longer accepts yields (nil, nil), any other failure is an error. The
// local record is read but never written here.
func (b *CognitoBackend) CurrentUser(ctx context.Context, accessToken string) (*User, error) {
	attrs, err := b.provider.GetUser(ctx, accessToken)
	if err != nil {
		if cognito.IsAuthFailure(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch user attributes: %w", err)
	}

	fields, extra := MapAttributes(attrs, b.mapping)

	stored := userstore.Fields{}
	var username string
	for name, value := range fields {
		if name == "username" {
			username = value
		}
		if userstore.HasColumn(name) {
			stored[name] = value
		} else {
			extra[name] = value
		}
	}
	if username == "" {
		username = extra["username"]
	}

	user := &User{Extra: extra}
	record, err := b.store.Get(ctx, username)
	if err != nil && !errors.Is(err, userstore.ErrNotFound) {
		return nil, fmt.Errorf("fetch user record: %w", err)
	}
	if record != nil {
		if err := stored.Apply(record); err != nil {
			return nil, err
		}
		user.Record = record
	} else {
		// Provider knows the user but the local store does not. Surface
		// the provider view without inventing a record.
		record = &userstore.User{Username: username}
		if err := stored.Apply(record); err != nil {
			return nil, err
		}
		user.Record = record
	}
	return user, nil
}

// UpdateProfile remaps local field names back to provider attribute
// names and pushes them to the provider. Unmapped field names pass
// through unchanged so custom provider attributes stay reachable.
func (b *CognitoBackend) UpdateProfile(ctx context.Context, accessToken string, fields map[string]string) error {
	attrs := ToProviderAttributes(fields, b.mapping)
	if len(attrs) == 0 {
		return nil
	}
	if err := b.provider.UpdateAttributes(ctx, accessToken, attrs); err != nil {
		return fmt.Errorf("update provider attributes: %w", err)
	}
	return nil
}

// Register signs a new user up with the provider, remapping the given
// field values to provider attribute names. A nil result with a nil
// error means the provider rejected the request with one of the two
// suppressible error kinds. The local store is untouched; a record is
// created on first successful login.
func (b *CognitoBackend) Register(ctx context.Context, username, password, email, firstName, lastName string) (*cognito.SignUpResult, error) {
	attrs := ToProviderAttributes(map[string]string{
		"email":      email,
		"first_name": firstName,
		"last_name":  lastName,
	}, b.mapping)

	result, err := b.provider.SignUp(ctx, username, password, attrs)
	if err != nil {
		if cognito.IsAuthFailure(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("provider sign up: %w", err)
	}
	return result, nil
}

// ConfirmSignUp forwards a confirmation code to the provider. This is
// a provisioning step, not a login attempt, so every failure is fatal.
func (b *CognitoBackend) ConfirmSignUp(ctx context.Context, code, username string) error {
	if err := b.provider.ConfirmSignUp(ctx, code, username); err != nil {
		return fmt.Errorf("confirm sign up: %w", err)
	}
	return nil
}

var _ Backend = (*CognitoBackend)(nil)
