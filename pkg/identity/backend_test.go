package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/vestibule/pkg/cognito"
	"github.com/platinummonkey/vestibule/pkg/observability"
	"github.com/platinummonkey/vestibule/pkg/userstore"
)

// fakeProvider implements Provider with canned responses
type fakeProvider struct {
	authErr    error
	tokens     cognito.Tokens
	attrs      []cognito.Attribute
	getUserErr error

	signUpResult *cognito.SignUpResult
	signUpErr    error
	confirmErr   error

	updateErr   error
	signUpAttrs []cognito.Attribute
	updated     []cognito.Attribute
}

func (f *fakeProvider) Authenticate(_ context.Context, _, _ string) (cognito.Tokens, error) {
	if f.authErr != nil {
		return cognito.Tokens{}, f.authErr
	}
	return f.tokens, nil
}

func (f *fakeProvider) GetUser(_ context.Context, _ string) ([]cognito.Attribute, error) {
	if f.getUserErr != nil {
		return nil, f.getUserErr
	}
	return f.attrs, nil
}

func (f *fakeProvider) SignUp(_ context.Context, _, _ string, attrs []cognito.Attribute) (*cognito.SignUpResult, error) {
	f.signUpAttrs = attrs
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	return f.signUpResult, nil
}

func (f *fakeProvider) ConfirmSignUp(_ context.Context, _, _ string) error {
	return f.confirmErr
}

func (f *fakeProvider) UpdateAttributes(_ context.Context, _ string, attrs []cognito.Attribute) error {
	f.updated = attrs
	return f.updateErr
}

// fakeStore implements userstore.Store in memory and counts writes
type fakeStore struct {
	users   map[string]*userstore.User
	upserts int
	saves   int

	getErr    error
	upsertErr error
	saveErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: map[string]*userstore.User{}}
}

func (s *fakeStore) Get(_ context.Context, username string) (*userstore.User, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	user, ok := s.users[username]
	if !ok {
		return nil, userstore.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *fakeStore) Upsert(_ context.Context, username string, fields userstore.Fields) (*userstore.User, error) {
	if s.upsertErr != nil {
		return nil, s.upsertErr
	}
	s.upserts++
	user, ok := s.users[username]
	if !ok {
		user = &userstore.User{ID: int64(len(s.users) + 1), Username: username}
		s.users[username] = user
	}
	if err := fields.Apply(user); err != nil {
		return nil, err
	}
	copied := *user
	return &copied, nil
}

func (s *fakeStore) Save(_ context.Context, user *userstore.User) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	copied := *user
	s.users[user.Username] = &copied
	return nil
}

func (s *fakeStore) writes() int { return s.upserts + s.saves }

func providerAttrs() []cognito.Attribute {
	return []cognito.Attribute{
		{Name: "email", Value: "a@x.com"},
		{Name: "given_name", Value: "A"},
		{Name: "family_name", Value: "B"},
	}
}

func testTokens() cognito.Tokens {
	return cognito.Tokens{AccessToken: "access", IDToken: "id", RefreshToken: "refresh"}
}

func TestAuthenticate_AutoProvisionCreatesRecord(t *testing.T) {
	provider := &fakeProvider{tokens: testTokens(), attrs: providerAttrs()}
	store := newFakeStore()
	backend := NewCognitoBackend(provider, store, Options{AutoProvision: true})

	user, err := backend.Authenticate(context.Background(), "alice", "pw")
	require.NoError(t, err)
	require.NotNil(t, user)

	assert.Equal(t, "alice", user.Record.Username)
	assert.Equal(t, "a@x.com", user.Record.Email)
	assert.Equal(t, "A", user.Record.FirstName)
	assert.Equal(t, "B", user.Record.LastName)
	assert.Equal(t, 1, store.upserts)
	assert.Len(t, store.users, 1)
}

func TestAuthenticate_AttachesTokens(t *testing.T) {
	provider := &fakeProvider{tokens: testTokens(), attrs: providerAttrs()}
	backend := NewCognitoBackend(provider, newFakeStore(), Options{AutoProvision: true})

	user, err := backend.Authenticate(context.Background(), "alice", "pw")
	require.NoError(t, err)
	require.NotNil(t, user)

	assert.Equal(t, "access", user.Tokens.AccessToken)
	assert.Equal(t, "id", user.Tokens.IDToken)
	assert.Equal(t, "refresh", user.Tokens.RefreshToken)
}

func TestAuthenticate_ExtrasNeverReachTheStore(t *testing.T) {
	provider := &fakeProvider{
		tokens: testTokens(),
		attrs: append(providerAttrs(),
			cognito.Attribute{Name: "sub", Value: "uuid-1"},
			cognito.Attribute{Name: "custom:api_key", Value: "k-123"},
		),
	}
	store := newFakeStore()
	mapping := DefaultAttributeMap()
	mapping["custom:api_key"] = "api_key" // mapped, but no local column
	backend := NewCognitoBackend(provider, store, Options{AutoProvision: true, Mapping: mapping})

	user, err := backend.Authenticate(context.Background(), "alice", "pw")
	require.NoError(t, err)
	require.NotNil(t, user)

	assert.Equal(t, "uuid-1", user.Extra["sub"])
	assert.Equal(t, "k-123", user.Extra["api_key"])
	assert.Equal(t, "a@x.com", store.users["alice"].Email)
}

func TestAuthenticate_NotAuthorizedReturnsNilWithoutWrite(t *testing.T) {
	provider := &fakeProvider{
		authErr: &smithy.GenericAPIError{Code: "NotAuthorizedException", Message: "Incorrect username or password."},
	}
	store := newFakeStore()
	backend := NewCognitoBackend(provider, store, Options{AutoProvision: true})

	user, err := backend.Authenticate(context.Background(), "alice", "wrong")
	assert.NoError(t, err)
	assert.Nil(t, user)
	assert.Zero(t, store.writes())
}

func TestAuthenticate_UserNotFoundReturnsNilWithoutWrite(t *testing.T) {
	provider := &fakeProvider{
		authErr: &smithy.GenericAPIError{Code: "UserNotFoundException", Message: "User does not exist."},
	}
	store := newFakeStore()
	backend := NewCognitoBackend(provider, store, Options{AutoProvision: true})

	user, err := backend.Authenticate(context.Background(), "ghost", "pw")
	assert.NoError(t, err)
	assert.Nil(t, user)
	assert.Zero(t, store.writes())
}

func TestAuthenticate_OtherProviderErrorsPropagateWithoutWrite(t *testing.T) {
	wantErr := errors.New("dial tcp: connection refused")
	provider := &fakeProvider{authErr: wantErr}
	store := newFakeStore()
	backend := NewCognitoBackend(provider, store, Options{AutoProvision: true})

	user, err := backend.Authenticate(context.Background(), "alice", "pw")
	require.Error(t, err)
	assert.ErrorIs(t, err, wantErr)
	assert.Nil(t, user)
	assert.Zero(t, store.writes())
}

func TestAuthenticate_GetUserFatalErrorPropagates(t *testing.T) {
	wantErr := &smithy.GenericAPIError{Code: "TooManyRequestsException", Message: "Rate exceeded"}
	provider := &fakeProvider{tokens: testTokens(), getUserErr: wantErr}
	store := newFakeStore()
	backend := NewCognitoBackend(provider, store, Options{AutoProvision: true})

	user, err := backend.Authenticate(context.Background(), "alice", "pw")
	require.Error(t, err)
	assert.Nil(t, user)
	assert.Zero(t, store.writes())
}

func TestAuthenticate_NoAutoProvisionMissingRecordYieldsNil(t *testing.T) {
	provider := &fakeProvider{tokens: testTokens(), attrs: providerAttrs()}
	store := newFakeStore()
	backend := NewCognitoBackend(provider, store, Options{AutoProvision: false})

	// Provider accepted the credential, but policy forbids implicit creation
	user, err := backend.Authenticate(context.Background(), "alice", "pw")
	assert.NoError(t, err)
	assert.Nil(t, user)
	assert.Zero(t, store.writes())
}

func TestAuthenticate_NoAutoProvisionUpdatesExistingRecord(t *testing.T) {
	provider := &fakeProvider{
		tokens: testTokens(),
		attrs: []cognito.Attribute{
			{Name: "email", Value: "new@x.com"},
			{Name: "given_name", Value: "A2"},
			// family_name absent from the provider's attribute list
		},
	}
	store := newFakeStore()
	store.users["alice"] = &userstore.User{
		ID:        7,
		Username:  "alice",
		Email:     "old@x.com",
		FirstName: "A",
		LastName:  "KeepMe",
	}
	backend := NewCognitoBackend(provider, store, Options{AutoProvision: false})

	user, err := backend.Authenticate(context.Background(), "alice", "pw")
	require.NoError(t, err)
	require.NotNil(t, user)

	saved := store.users["alice"]
	assert.Equal(t, "new@x.com", saved.Email)
	assert.Equal(t, "A2", saved.FirstName)
	assert.Equal(t, "KeepMe", saved.LastName, "absent mapped fields stay untouched")
	assert.Equal(t, 1, store.saves)
	assert.Zero(t, store.upserts)
}

func TestAuthenticate_StoreErrorPropagates(t *testing.T) {
	provider := &fakeProvider{tokens: testTokens(), attrs: providerAttrs()}
	store := newFakeStore()
	store.upsertErr = errors.New("constraint violation")
	backend := NewCognitoBackend(provider, store, Options{AutoProvision: true})

	user, err := backend.Authenticate(context.Background(), "alice", "pw")
	require.Error(t, err)
	assert.Nil(t, user)
}

func TestRegister_RemapsFieldNames(t *testing.T) {
	provider := &fakeProvider{signUpResult: &cognito.SignUpResult{UserSub: "sub-1"}}
	backend := NewCognitoBackend(provider, newFakeStore(), Options{AutoProvision: true})

	result, err := backend.Register(context.Background(), "alice", "pw", "a@x.com", "A", "B")
	require.NoError(t, err)
	assert.Equal(t, "sub-1", result.UserSub)

	byName := map[string]string{}
	for _, a := range provider.signUpAttrs {
		byName[a.Name] = a.Value
	}
	assert.Equal(t, "a@x.com", byName["email"])
	assert.Equal(t, "A", byName["given_name"])
	assert.Equal(t, "B", byName["family_name"])
}

func TestRegister_TwoTierErrorPolicy(t *testing.T) {
	suppressed := &fakeProvider{
		signUpErr: &smithy.GenericAPIError{Code: "NotAuthorizedException", Message: "SignUp is not permitted"},
	}
	backend := NewCognitoBackend(suppressed, newFakeStore(), Options{AutoProvision: true})
	result, err := backend.Register(context.Background(), "alice", "pw", "a@x.com", "A", "B")
	assert.NoError(t, err)
	assert.Nil(t, result)

	fatal := &fakeProvider{signUpErr: errors.New("timeout")}
	backend = NewCognitoBackend(fatal, newFakeStore(), Options{AutoProvision: true})
	_, err = backend.Register(context.Background(), "alice", "pw", "a@x.com", "A", "B")
	assert.Error(t, err)
}

func TestConfirmSignUp_AllFailuresFatal(t *testing.T) {
	// A provisioning step, not a login attempt: even the suppressible
	// kinds propagate here
	provider := &fakeProvider{
		confirmErr: &smithy.GenericAPIError{Code: "UserNotFoundException", Message: "User does not exist."},
	}
	backend := NewCognitoBackend(provider, newFakeStore(), Options{AutoProvision: true})

	err := backend.ConfirmSignUp(context.Background(), "123456", "ghost")
	assert.Error(t, err)
}

func TestConfirmSignUp_Success(t *testing.T) {
	backend := NewCognitoBackend(&fakeProvider{}, newFakeStore(), Options{AutoProvision: true})
	assert.NoError(t, backend.ConfirmSignUp(context.Background(), "123456", "alice"))
}

func currentUserAttrs() []cognito.Attribute {
	return append([]cognito.Attribute{{Name: "username", Value: "alice"}}, providerAttrs()...)
}

func TestCurrentUser_MergesLocalRecord(t *testing.T) {
	provider := &fakeProvider{attrs: currentUserAttrs()}
	store := newFakeStore()
	store.users["alice"] = &userstore.User{ID: 7, Username: "alice", Email: "stale@x.com"}
	backend := NewCognitoBackend(provider, store, Options{AutoProvision: true})

	user, err := backend.CurrentUser(context.Background(), "access")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, int64(7), user.Record.ID)
	// Provider attributes win over the stored snapshot
	assert.Equal(t, "a@x.com", user.Record.Email)
	assert.Equal(t, "A", user.Record.FirstName)
	// Read path never writes
	assert.Zero(t, store.writes())
}

func TestCurrentUser_NoLocalRecord(t *testing.T) {
	provider := &fakeProvider{attrs: currentUserAttrs()}
	backend := NewCognitoBackend(provider, newFakeStore(), Options{AutoProvision: true})

	user, err := backend.CurrentUser(context.Background(), "access")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Zero(t, user.Record.ID)
	assert.Equal(t, "alice", user.Record.Username)
	assert.Equal(t, "a@x.com", user.Record.Email)
}

func TestCurrentUser_RejectedToken(t *testing.T) {
	provider := &fakeProvider{
		getUserErr: &smithy.GenericAPIError{Code: "NotAuthorizedException", Message: "Access Token has expired"},
	}
	backend := NewCognitoBackend(provider, newFakeStore(), Options{AutoProvision: true})

	user, err := backend.CurrentUser(context.Background(), "expired")
	assert.NoError(t, err)
	assert.Nil(t, user)
}

func TestCurrentUser_FatalProviderError(t *testing.T) {
	provider := &fakeProvider{getUserErr: errors.New("timeout")}
	backend := NewCognitoBackend(provider, newFakeStore(), Options{AutoProvision: true})

	_, err := backend.CurrentUser(context.Background(), "access")
	assert.Error(t, err)
}

func TestUpdateProfile_RemapsFieldNames(t *testing.T) {
	provider := &fakeProvider{}
	backend := NewCognitoBackend(provider, newFakeStore(), Options{AutoProvision: true})

	err := backend.UpdateProfile(context.Background(), "access", map[string]string{
		"first_name":     "Alicia",
		"custom:api_key": "k-1",
	})
	require.NoError(t, err)

	byName := map[string]string{}
	for _, a := range provider.updated {
		byName[a.Name] = a.Value
	}
	assert.Equal(t, "Alicia", byName["given_name"])
	// Unmapped names pass through untouched
	assert.Equal(t, "k-1", byName["custom:api_key"])
}

func TestUpdateProfile_EmptyFieldsSkipsProvider(t *testing.T) {
	provider := &fakeProvider{updateErr: errors.New("should not be called")}
	backend := NewCognitoBackend(provider, newFakeStore(), Options{AutoProvision: true})

	assert.NoError(t, backend.UpdateProfile(context.Background(), "access", nil))
}

func TestAuthenticate_CountsProvisionedRecords(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	provider := &fakeProvider{tokens: testTokens(), attrs: providerAttrs()}
	backend := NewCognitoBackend(provider, newFakeStore(), Options{
		AutoProvision: true,
		Metrics:       metrics,
	})

	_, err := backend.Authenticate(context.Background(), "alice", "pw")
	require.NoError(t, err)
	_, err = backend.Authenticate(context.Background(), "alice", "pw")
	require.NoError(t, err)

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.ProvisionedUsers))
}

func TestAuthenticate_RejectedLoginCountsNoProvisioning(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	provider := &fakeProvider{
		authErr: &smithy.GenericAPIError{Code: "NotAuthorizedException", Message: "Incorrect username or password."},
	}
	backend := NewCognitoBackend(provider, newFakeStore(), Options{
		AutoProvision: true,
		Metrics:       metrics,
	})

	user, err := backend.Authenticate(context.Background(), "alice", "bad")
	require.NoError(t, err)
	require.Nil(t, user)

	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.ProvisionedUsers))
}

func TestAuthenticate_SavePathCountsProvisionedRecords(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	provider := &fakeProvider{tokens: testTokens(), attrs: providerAttrs()}
	store := newFakeStore()
	store.users["alice"] = &userstore.User{ID: 3, Username: "alice", Email: "old@x.com"}
	backend := NewCognitoBackend(provider, store, Options{
		AutoProvision: false,
		Metrics:       metrics,
	})

	_, err := backend.Authenticate(context.Background(), "alice", "pw")
	require.NoError(t, err)

	assert.Equal(t, 1, store.saves)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ProvisionedUsers))
}
