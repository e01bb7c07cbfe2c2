package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDSN(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"empty", "  ", ""},
		{"url untouched", "postgres://u:p@h:5432/db", "postgres://u:p@h:5432/db"},
		{"quoted kv gets sslmode", `"host=h  user=u dbname=db"`, "host=h user=u dbname=db sslmode=disable"},
		{"kv keeps sslmode", "host=h user=u dbname=db sslmode=require", "host=h user=u dbname=db sslmode=require"},
		{"garbage passes through", "not a dsn", "not a dsn"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeDSN(tc.in))
		})
	}
}

func TestToURLDSN(t *testing.T) {
	assert.Equal(t, "postgres://u:p@h:5432/db?sslmode=disable",
		ToURLDSN("host=h port=5432 user=u password=p dbname=db sslmode=disable"))
	assert.Equal(t, "postgres://u@h/db", ToURLDSN("host=h user=u dbname=db"))
	assert.Equal(t, "host=h", ToURLDSN("host=h"))
	assert.Equal(t, "postgres://x", ToURLDSN("postgres://x"))
}

func TestMaskDSN(t *testing.T) {
	assert.Equal(t, "host=h password=*** dbname=db", MaskDSN("host=h password=s3cret dbname=db"))
	assert.Equal(t, "postgres://u:***@h:5432/db", MaskDSN("postgres://u:s3cret@h:5432/db"))
	assert.Equal(t, "postgres://u@h/db", MaskDSN("postgres://u@h/db"))
}
