package informer

import (
	"testing"

	"github.com/antonholmquist/jason"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileInformerWaitsForInitialization(t *testing.T) {
	t.Parallel()

	p := NewProfileInformer()
	for range 100 {
		assert.False(t, p.Check(t.Context()))
	}
	assert.False(t, p.Done())
}

func TestProfileInformerSendsOnce(t *testing.T) {
	t.Parallel()

	p := NewProfileInformer()
	p.SetUser(UserSnapshot{ID: 7, FirstName: "Aditya", LastName: "Nathwani", Email: "a@example.com"})

	fired := 0
	var payload string
	for range 50 {
		if p.Check(t.Context()) {
			fired++
			payload = p.Update()
		}
	}

	require.Equal(t, 1, fired)
	assert.True(t, p.Done())

	obj, err := jason.NewObjectFromBytes([]byte(payload))
	require.NoError(t, err)
	first, _ := obj.GetString("first_name")
	last, _ := obj.GetString("last_name")
	email, _ := obj.GetString("email")
	assert.Equal(t, "Aditya", first)
	assert.Equal(t, "Nathwani", last)
	assert.Equal(t, "a@example.com", email)
	assert.Len(t, obj.Map(), 3, "only first name, last name and email are sent")
}

func TestProfileInformerErrorWins(t *testing.T) {
	t.Parallel()

	p := NewProfileInformer()
	p.SetError("No user logged in. Please login to continue")
	p.SetUser(UserSnapshot{ID: 1, FirstName: "Late", LastName: "Arrival"})

	require.True(t, p.Check(t.Context()))
	payload := p.Update()
	assert.JSONEq(t, `{"error":"No user logged in. Please login to continue"}`, payload)
	assert.True(t, p.Done())
	assert.False(t, p.Check(t.Context()))
}

func TestErrorPayloadEscapes(t *testing.T) {
	t.Parallel()

	payload := ErrorPayload(`say "hi"\now`)
	obj, err := jason.NewObjectFromBytes([]byte(payload))
	require.NoError(t, err, "payload must be valid JSON")
	msg, err := obj.GetString("error")
	require.NoError(t, err)
	assert.Equal(t, `say "hi"\now`, msg)

	assert.Equal(t, `{"error":"internal error occurd"}`, ErrorPayload(GenericError))
}
