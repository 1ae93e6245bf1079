package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zqian/my-learning-analytics/config"
)

type fakeManager struct {
	values map[string]string
	calls  []string
}

func (f *fakeManager) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	id := aws.ToString(in.SecretId)
	f.calls = append(f.calls, id)
	v, ok := f.values[id]
	if !ok {
		return nil, errors.New("ResourceNotFoundException")
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(v)}, nil
}

func TestResolveConfigFillsOnlyConfiguredPasswords(t *testing.T) {
	api := &fakeManager{values: map[string]string{
		"myla/store":     "store-pw",
		"myla/warehouse": "wh-pw",
	}}
	r := NewResolverWithAPI(api, zap.NewNop())

	cfg := &config.Config{}
	cfg.Store.PasswordSecretID = "myla/store"
	cfg.Warehouse.PasswordSecretID = "myla/warehouse"
	cfg.LRS.Password = "plain"

	require.True(t, NeedsResolution(cfg))
	require.NoError(t, r.ResolveConfig(context.Background(), cfg))

	assert.Equal(t, "store-pw", cfg.Store.Password)
	assert.Equal(t, "wh-pw", cfg.Warehouse.Password)
	assert.Equal(t, "plain", cfg.LRS.Password)
	assert.Equal(t, []string{"myla/store", "myla/warehouse"}, api.calls)
}

func TestGetEmptySecret(t *testing.T) {
	api := &fakeManager{values: map[string]string{"empty": ""}}
	r := NewResolverWithAPI(api, zap.NewNop())

	_, err := r.Get(context.Background(), "empty")
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestGetMissingSecret(t *testing.T) {
	r := NewResolverWithAPI(&fakeManager{}, zap.NewNop())

	_, err := r.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestNeedsResolutionFalseWithoutSecretIDs(t *testing.T) {
	assert.False(t, NeedsResolution(&config.Config{}))
}
