package messaging

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToSDKMessageCarriesType(t *testing.T) {
	t.Parallel()

	cases := []struct {
		msg  Message
		want map[string]any
	}{
		{TextMessage{Text: "hi"}, map[string]any{"type": "text", "text": "hi"}},
		{ImageMessage{OriginalContentURL: "o", PreviewImageURL: "p"}, map[string]any{"type": "image", "originalContentUrl": "o", "previewImageUrl": "p"}},
		{VideoMessage{OriginalContentURL: "o", PreviewImageURL: "p"}, map[string]any{"type": "video", "originalContentUrl": "o", "previewImageUrl": "p"}},
		{AudioMessage{OriginalContentURL: "o", Duration: 1200}, map[string]any{"type": "audio", "originalContentUrl": "o", "duration": float64(1200)}},
		{LocationMessage{Title: "t", Address: "a", Latitude: 1.5, Longitude: 2.5}, map[string]any{"type": "location", "title": "t", "address": "a", "latitude": 1.5, "longitude": 2.5}},
		{StickerMessage{PackageID: "1", StickerID: "2"}, map[string]any{"type": "sticker", "packageId": "1", "stickerId": "2"}},
	}
	for _, tc := range cases {
		converted, err := ToSDKMessage(tc.msg)
		require.NoError(t, err)
		data, err := json.Marshal(converted)
		require.NoError(t, err)
		var got map[string]any
		require.NoError(t, json.Unmarshal(data, &got))
		for key, want := range tc.want {
			assert.Equal(t, want, got[key], "%s.%s", tc.msg.Type(), key)
		}
	}
}

func TestToSDKMessageDecodesRawPayloads(t *testing.T) {
	t.Parallel()

	raw, err := NewRawMessage([]byte(`{"type":"template","altText":"x","template":{"type":"confirm","text":"ok?","actions":[{"type":"message","label":"Yes","text":"Yes!"},{"type":"message","label":"No","text":"No!"}]}}`))
	require.NoError(t, err)
	converted, err := ToSDKMessages([]Message{TextMessage{Text: "first"}, raw})
	require.NoError(t, err)
	require.Len(t, converted, 2)

	data, err := json.Marshal(converted[1])
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "template", got["type"])
	assert.Equal(t, "x", got["altText"])
	tmpl, ok := got["template"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "confirm", tmpl["type"])

	_, err = ToSDKMessage(RawMessage{})
	assert.ErrorIs(t, err, ErrMissingType)
}

func TestRawMessage(t *testing.T) {
	t.Parallel()

	msg, err := NewRawMessage([]byte(`{"type":"template","altText":"x","template":{"type":"confirm"}}`))
	require.NoError(t, err)
	assert.Equal(t, TypeTemplate, msg.Type())

	got, err := json.Marshal([]Message{msg})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"type":"template","altText":"x","template":{"type":"confirm"}}]`, string(got))

	_, err = NewRawMessage([]byte(`{"altText":"x"}`))
	assert.ErrorIs(t, err, ErrMissingType)
	_, err = NewRawMessage([]byte(`{"type":7}`))
	assert.ErrorIs(t, err, ErrMissingType)
	_, err = NewRawMessage([]byte(`[1]`))
	assert.Error(t, err)

	_, err = json.Marshal(RawMessage{})
	assert.Error(t, err)
}

func TestTextMessages(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []Message{TextMessage{Text: "a"}, TextMessage{Text: "b"}}, TextMessages("a", "b"))
	assert.Empty(t, TextMessages())
}
