package objectstore

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinKey(t *testing.T) {
	tests := []struct {
		prefix, name, want string
	}{
		{"", "a.xlsx", "a.xlsx"},
		{"recette", "a.xlsx", "recette/a.xlsx"},
		{"recette/", "a.xlsx", "recette/a.xlsx"},
		{"/backups/", "/calc.db.gz", "backups/calc.db.gz"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, JoinKey(tt.prefix, tt.name))
	}
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{}, zerolog.Nop())
	require.Error(t, err)
}

func TestNew_WithStaticCredentials(t *testing.T) {
	client, err := New(context.Background(), Config{
		Endpoint:        "http://127.0.0.1:9000",
		Region:          "auto",
		Bucket:          "ecowash",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
	}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "ecowash", client.bucket)
}
