package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEnvelope(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"event":"join","data":{"remoteAddress":"10.0.0.5"}}`))
	require.NoError(t, err)
	assert.Equal(t, EventJoin, env.Event)
	assert.JSONEq(t, `{"remoteAddress":"10.0.0.5"}`, string(env.Data))

	_, err = DecodeEnvelope([]byte(`{"data":{}}`))
	assert.Error(t, err)

	_, err = DecodeEnvelope([]byte(`not json`))
	assert.Error(t, err)
}

func TestEncodePassesRawPayloadThrough(t *testing.T) {
	raw := json.RawMessage(`{"remoteAddress":"10.0.0.5","type":"printer","status":{"type":"Printing","progress":42}}`)
	frame, err := Encode(EventStatus, raw)
	require.NoError(t, err)

	env, err := DecodeEnvelope(frame)
	require.NoError(t, err)
	assert.Equal(t, EventStatus, env.Event)
	assert.JSONEq(t, string(raw), string(env.Data))
}
