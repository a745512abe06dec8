package verification

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	store map[string]string

	getErr error
	setErr error
	delErr error
}

func newFakeClient() *fakeClient {
	return &fakeClient{store: make(map[string]string)}
}

func (f *fakeClient) Get(key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}

	v, ok := f.store[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}

	return redis.NewStringResult(v, nil)
}

func (f *fakeClient) Set(key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}

	f.store[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeClient) Del(keys ...string) *redis.IntCmd {
	if f.delErr != nil {
		return redis.NewIntResult(0, f.delErr)
	}

	var n int64
	for _, k := range keys {
		if _, ok := f.store[k]; ok {
			delete(f.store, k)
			n++
		}
	}

	return redis.NewIntResult(n, nil)
}

func TestCodes_Issue(t *testing.T) {
	r := newFakeClient()
	c := New(r, time.Minute)

	code, err := c.Issue(context.Background(), "winter@cloudstory.app")
	require.NoError(t, err)
	require.Len(t, code, codeLength)

	for _, ch := range code {
		assert.Contains(t, codeAlphabet, string(ch))
	}

	assert.Equal(t, code, r.store["verification:code:winter@cloudstory.app"])
}

func TestCodes_Issue_ReplacesPrevious(t *testing.T) {
	r := newFakeClient()
	c := New(r, time.Minute)

	first, err := c.Issue(context.Background(), "winter@cloudstory.app")
	require.NoError(t, err)

	second, err := c.Issue(context.Background(), "winter@cloudstory.app")
	require.NoError(t, err)

	ok, err := c.Verify(context.Background(), "winter@cloudstory.app", first)
	require.NoError(t, err)
	// two equal random codes in a row would be astronomically unlucky
	assert.Equal(t, first == second, ok)

	ok, err = c.Verify(context.Background(), "winter@cloudstory.app", second)
	require.NoError(t, err)
	assert.Equal(t, first != second, ok)
}

func TestCodes_Verify(t *testing.T) {
	r := newFakeClient()
	c := New(r, time.Minute)

	code, err := c.Issue(context.Background(), "winter@cloudstory.app")
	require.NoError(t, err)

	ok, err := c.Verify(context.Background(), "winter@cloudstory.app", code)
	require.NoError(t, err)
	require.True(t, ok)

	// a match consumes the code, a replay fails
	ok, err = c.Verify(context.Background(), "winter@cloudstory.app", code)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCodes_Verify_Mismatch(t *testing.T) {
	r := newFakeClient()
	c := New(r, time.Minute)

	code, err := c.Issue(context.Background(), "winter@cloudstory.app")
	require.NoError(t, err)

	ok, err := c.Verify(context.Background(), "winter@cloudstory.app", "WRONG0")
	require.NoError(t, err)
	require.False(t, ok)

	// a mismatch does not consume the stored code
	ok, err = c.Verify(context.Background(), "winter@cloudstory.app", code)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCodes_Verify_NoCode(t *testing.T) {
	c := New(newFakeClient(), time.Minute)

	ok, err := c.Verify(context.Background(), "nobody@cloudstory.app", "ABC123")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCodes_RedisFailures(t *testing.T) {
	r := newFakeClient()
	c := New(r, time.Minute)

	r.setErr = context.Canceled
	_, err := c.Issue(context.Background(), "winter@cloudstory.app")
	require.Error(t, err)

	r.setErr = nil
	code, err := c.Issue(context.Background(), "winter@cloudstory.app")
	require.NoError(t, err)

	r.getErr = context.Canceled
	_, err = c.Verify(context.Background(), "winter@cloudstory.app", code)
	require.Error(t, err)
}
