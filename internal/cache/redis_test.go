package cache

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	c := InitRedis(mr.Addr())
	require.NotNil(t, c)
	t.Cleanup(func() { _ = c.Close() })

	c = InitRedis("redis://" + mr.Addr() + "/0")
	require.NotNil(t, c)
	_ = c.Close()
}

func TestInitRedis_Unavailable(t *testing.T) {
	assert.Nil(t, InitRedis(""))

	assert.Nil(t, InitRedis("redis://%zz"))

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	assert.Nil(t, InitRedis(addr))
}

func TestParseOptions(t *testing.T) {
	opts, err := ParseOptions("localhost:6379")
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)

	opts, err = ParseOptions("redis://:secret@cache:6380/2")
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)
}

func TestRateLimitKey(t *testing.T) {
	assert.Equal(t, "rl:login:ip:10.0.0.1", RateLimitKey("login", "ip:10.0.0.1"))
}
