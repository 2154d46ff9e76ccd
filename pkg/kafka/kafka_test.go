package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

func TestEncodeEvents(t *testing.T) {
	messages, err := encodeEvents([]Event{
		{Key: "chocolate candy", Value: payload{Query: "chocolate candy", Count: 2}},
		{Key: "empty", Value: payload{}},
	})
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "chocolate candy", string(messages[0].Key))
	assert.JSONEq(t, `{"query":"chocolate candy","count":2}`, string(messages[0].Value))
}

func TestEncodeEventsRejectsUnencodable(t *testing.T) {
	_, err := encodeEvents([]Event{{Key: "bad", Value: make(chan int)}})
	assert.Error(t, err)
}

func TestDecodeJSON(t *testing.T) {
	got, err := DecodeJSON[payload]([]byte(`{"query":"made in italy","count":3}`))
	require.NoError(t, err)
	assert.Equal(t, payload{Query: "made in italy", Count: 3}, got)

	_, err = DecodeJSON[payload]([]byte(`{not json`))
	assert.Error(t, err)
}
