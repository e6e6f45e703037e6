package bot

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memohai/kitchensink/internal/media"
	"github.com/memohai/kitchensink/internal/messaging"
	"github.com/memohai/kitchensink/internal/messaging/messagingtest"
	"github.com/memohai/kitchensink/internal/templates"
	"github.com/memohai/kitchensink/internal/webhook"
)

const testBaseURL = "https://bot.example.com"

type fakeMedia struct {
	mu         sync.Mutex
	fetched    []string
	previewed  []string
	fetchErr   error
	previewErr error
}

func (f *fakeMedia) Fetch(_ context.Context, messageID string, kind media.MediaType) (media.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, messageID+":"+string(kind))
	if f.fetchErr != nil {
		return media.Asset{}, f.fetchErr
	}
	ext, err := kind.Extension()
	if err != nil {
		return media.Asset{}, err
	}
	key := messageID + ext
	return media.Asset{Key: key, Path: "/srv/" + key, URLPath: "/downloaded/" + key, MediaType: kind}, nil
}

func (f *fakeMedia) Preview(_ context.Context, src media.Asset) (media.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.previewed = append(f.previewed, src.Key)
	if f.previewErr != nil {
		return media.Asset{}, f.previewErr
	}
	key := media.PreviewKey(src.Key)
	return media.Asset{Key: key, URLPath: "/downloaded/" + key, MediaType: media.MediaTypeImage}, nil
}

type routerFixture struct {
	router    *Router
	transport *messagingtest.Transport
	media     *fakeMedia
}

func newRouterFixture(t *testing.T) routerFixture {
	t.Helper()
	tr := &messagingtest.Transport{Profiles: map[string]messaging.Profile{
		"U1": {UserID: "U1", DisplayName: "Brown", PictureURL: "https://p/1", StatusMessage: "hello"},
	}}
	fm := &fakeMedia{}
	r := NewRouter(nil, messaging.NewSender(nil, tr), templates.Default(), fm, fm, RouterConfig{
		BaseURL:   testBaseURL + "/",
		EnableBye: true,
	})
	return routerFixture{router: r, transport: tr, media: fm}
}

func textEvent(token, text string, src webhook.Source) webhook.MessageEvent {
	return webhook.MessageEvent{
		EventMeta:  webhook.EventMeta{Source: src},
		ReplyToken: token,
		Message:    webhook.TextMessage{ID: "m1", Text: text},
	}
}

func requireTexts(t *testing.T, tr *messagingtest.Transport, token string, texts ...string) {
	t.Helper()
	reply, ok := tr.ReplyFor(token)
	require.True(t, ok, "no reply for %s", token)
	assert.Equal(t, messaging.TextMessages(texts...), reply.Messages)
}

func TestIsSentinelToken(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"00000000000000000000000000000000": true,
		"ffffffffffffffffffffffffffffffff": true,
		"1111111111":                       true,
		"a":                                true,
		"ああ":                               true,
		"":                                 false,
		"nHuyWiB7yP5Zw52FIkcQobQuGDXCTA":   false,
		"0000000001":                       false,
	}
	for token, want := range cases {
		assert.Equal(t, want, IsSentinelToken(token), token)
	}
}

func TestRouteSentinelSkipsReply(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t)
	for _, msg := range []webhook.Message{
		webhook.TextMessage{ID: "1", Text: "profile"},
		webhook.ImageMessage{ID: "2", Provider: webhook.PlatformHosted{}},
		webhook.UnknownMessage{ID: "3", Type: "file"},
	} {
		out, err := f.router.Route(context.Background(), webhook.MessageEvent{
			EventMeta:  webhook.EventMeta{Source: webhook.UserSource{UserID: "U1"}},
			ReplyToken: "00000000000000000000000000000000",
			Message:    msg,
		})
		require.NoError(t, err)
		assert.Equal(t, Outcome{Event: webhook.EventMessage, Action: ActionIgnored}, out)
	}
	assert.Empty(t, f.transport.Replies())
	assert.Empty(t, f.transport.ProfileCalls())
	assert.Empty(t, f.media.fetched)
}

func TestRouteNonMessageSentinelIsNotSkipped(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t)
	_, err := f.router.Route(context.Background(), webhook.FollowEvent{ReplyToken: "1111111111"})
	require.NoError(t, err)
	requireTexts(t, f.transport, "1111111111", "Got followed event")
}

func TestHandleTextProfile(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t)
	out, err := f.router.Route(context.Background(), textEvent("T1", "profile", webhook.UserSource{UserID: "U1"}))
	require.NoError(t, err)
	assert.Equal(t, ActionReply, out.Action)
	require.NotNil(t, out.Delivery)
	assert.Equal(t, "req-1", out.Delivery.RequestID)

	requireTexts(t, f.transport, "T1", "Display name: Brown", "Picture: https://p/1", "Status message: hello")
	assert.Equal(t, []string{"U1"}, f.transport.ProfileCalls())
}

func TestHandleTextProfileWithoutUserID(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t)
	_, err := f.router.Route(context.Background(), textEvent("T1", "profile", webhook.GroupSource{GroupID: "G1"}))
	require.NoError(t, err)
	requireTexts(t, f.transport, "T1", "Bot can't use profile API without user ID")
	assert.Empty(t, f.transport.ProfileCalls())
}

func TestHandleTextProfileFailure(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t)
	_, err := f.router.Route(context.Background(), textEvent("T1", "profile", webhook.UserSource{UserID: "U404"}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, messaging.ErrTransport))
	assert.Empty(t, f.transport.Replies())
}

func TestHandleTextBye(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t)
	ctx := context.Background()

	_, err := f.router.Route(ctx, textEvent("TU", "bye", webhook.UserSource{UserID: "U1"}))
	require.NoError(t, err)
	requireTexts(t, f.transport, "TU", "Bot can't leave from 1:1 chat")

	_, err = f.router.Route(ctx, textEvent("TG", "bye", webhook.GroupSource{GroupID: "G1"}))
	require.NoError(t, err)
	requireTexts(t, f.transport, "TG", "Leaving group")

	_, err = f.router.Route(ctx, textEvent("TR", "bye", webhook.RoomSource{RoomID: "R1"}))
	require.NoError(t, err)
	requireTexts(t, f.transport, "TR", "Leaving room")

	assert.Equal(t, []string{"G1"}, f.transport.LeftGroups())
	assert.Equal(t, []string{"R1"}, f.transport.LeftRooms())
}

func TestHandleTextByeDisabledEchoes(t *testing.T) {
	t.Parallel()

	tr := &messagingtest.Transport{}
	r := NewRouter(nil, messaging.NewSender(nil, tr), templates.Default(), nil, nil, RouterConfig{BaseURL: testBaseURL})
	_, err := r.Route(context.Background(), textEvent("T", "bye", webhook.GroupSource{GroupID: "G1"}))
	require.NoError(t, err)
	requireTexts(t, tr, "T", "bye")
	assert.Empty(t, tr.LeftGroups())
}

func TestHandleTextReservedWordsShadowTemplates(t *testing.T) {
	t.Parallel()

	store, err := templates.Parse([]byte(`{
		"profile": {"type": "text", "text": "template profile"},
		"bye": {"type": "text", "text": "template bye"}
	}`))
	require.NoError(t, err)
	tr := &messagingtest.Transport{}
	r := NewRouter(nil, messaging.NewSender(nil, tr), store, nil, nil, RouterConfig{BaseURL: testBaseURL, EnableBye: true})

	_, err = r.Route(context.Background(), textEvent("T1", "profile", webhook.RoomSource{RoomID: "R1"}))
	require.NoError(t, err)
	requireTexts(t, tr, "T1", "Bot can't use profile API without user ID")

	_, err = r.Route(context.Background(), textEvent("T2", "bye", webhook.UserSource{UserID: "U1"}))
	require.NoError(t, err)
	requireTexts(t, tr, "T2", "Bot can't leave from 1:1 chat")
}

func TestHandleTextTemplate(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t)
	_, err := f.router.Route(context.Background(), textEvent("T1", "buttons", webhook.UserSource{UserID: "U1"}))
	require.NoError(t, err)

	reply, ok := f.transport.ReplyFor("T1")
	require.True(t, ok)
	require.Len(t, reply.Messages, 1)
	assert.Equal(t, messaging.TypeTemplate, reply.Messages[0].Type())
	data, err := json.Marshal(reply.Messages[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), testBaseURL+"/static/buttons/1040.jpg")
	assert.NotContains(t, string(data), "$BASE_URL")
}

func TestHandleTextEcho(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t)
	_, err := f.router.Route(context.Background(), textEvent("T1", "Buttons", webhook.UserSource{UserID: "U1"}))
	require.NoError(t, err)
	requireTexts(t, f.transport, "T1", "Buttons")
}

func TestRouteNonMessageEvents(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cases := []struct {
		name  string
		event webhook.Event
		want  string
	}{
		{"follow", webhook.FollowEvent{ReplyToken: "T"}, "Got followed event"},
		{"join group", webhook.JoinEvent{EventMeta: webhook.EventMeta{Source: webhook.GroupSource{GroupID: "G"}}, ReplyToken: "T"}, "Joined group"},
		{"join room", webhook.JoinEvent{EventMeta: webhook.EventMeta{Source: webhook.RoomSource{RoomID: "R"}}, ReplyToken: "T"}, "Joined room"},
		{"postback", webhook.PostbackEvent{ReplyToken: "T", Postback: webhook.Postback{Data: "action=buy"}}, "Got postback: action=buy"},
		{"postback date", webhook.PostbackEvent{ReplyToken: "T", Postback: webhook.Postback{
			Data:   "DATE",
			Params: &webhook.PostbackParams{Date: "2017-09-03"},
		}}, `Got postback: DATE({"date":"2017-09-03"})`},
		{"postback datetime", webhook.PostbackEvent{ReplyToken: "T", Postback: webhook.Postback{
			Data:   "DATETIME",
			Params: &webhook.PostbackParams{Datetime: "2017-09-03T10:00"},
		}}, `Got postback: DATETIME({"datetime":"2017-09-03T10:00"})`},
		{"beacon", webhook.BeaconEvent{ReplyToken: "T", Beacon: webhook.Beacon{HWID: "d41d8cd98f", Type: "enter"}}, "Got beacon: d41d8cd98f"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newRouterFixture(t)
			out, err := f.router.Route(ctx, tc.event)
			require.NoError(t, err)
			assert.Equal(t, tc.event.Kind(), out.Event)
			assert.Equal(t, ActionReply, out.Action)
			requireTexts(t, f.transport, "T", tc.want)
		})
	}
}

func TestRouteLogOnlyEvents(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t)
	for _, event := range []webhook.Event{webhook.UnfollowEvent{}, webhook.LeaveEvent{}} {
		out, err := f.router.Route(context.Background(), event)
		require.NoError(t, err)
		assert.Equal(t, Outcome{Event: event.Kind(), Action: ActionLog}, out)
	}
	assert.Empty(t, f.transport.Replies())
}

func TestRouteUnknownKinds(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t)

	_, err := f.router.Route(context.Background(), webhook.UnknownEvent{Type: "things"})
	assert.ErrorIs(t, err, ErrUnknownEventKind)

	raw := json.RawMessage(`{"id":"9","type":"file","fileName":"a.pdf"}`)
	_, err = f.router.Route(context.Background(), webhook.MessageEvent{
		ReplyToken: "T",
		Message:    webhook.UnknownMessage{ID: "9", Type: "file", Raw: raw},
	})
	require.ErrorIs(t, err, ErrUnknownMessageKind)
	var kindErr *UnknownKindError
	require.True(t, errors.As(err, &kindErr))
	assert.Equal(t, "file", kindErr.Type)
	assert.JSONEq(t, string(raw), string(kindErr.Raw))
	assert.Empty(t, f.transport.Replies())
}

func TestRouteLocationAndSticker(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t)
	ctx := context.Background()
	_, err := f.router.Route(ctx, webhook.MessageEvent{ReplyToken: "TL", Message: webhook.LocationMessage{
		Title: "LINE", Address: "Tokyo", Latitude: 35.65910807942215, Longitude: 139.70372892916203,
	}})
	require.NoError(t, err)
	_, err = f.router.Route(ctx, webhook.MessageEvent{ReplyToken: "TS", Message: webhook.StickerMessage{PackageID: "1", StickerID: "1"}})
	require.NoError(t, err)

	loc, _ := f.transport.ReplyFor("TL")
	assert.Equal(t, []messaging.Message{messaging.LocationMessage{
		Title: "LINE", Address: "Tokyo", Latitude: 35.65910807942215, Longitude: 139.70372892916203,
	}}, loc.Messages)
	sticker, _ := f.transport.ReplyFor("TS")
	assert.Equal(t, []messaging.Message{messaging.StickerMessage{PackageID: "1", StickerID: "1"}}, sticker.Messages)
}

func TestRouteMediaPlatformHosted(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t)
	ctx := context.Background()
	_, err := f.router.Route(ctx, webhook.MessageEvent{ReplyToken: "TI", Message: webhook.ImageMessage{ID: "100", Provider: webhook.PlatformHosted{}}})
	require.NoError(t, err)
	_, err = f.router.Route(ctx, webhook.MessageEvent{ReplyToken: "TV", Message: webhook.VideoMessage{ID: "200", Duration: 5000, Provider: webhook.PlatformHosted{}}})
	require.NoError(t, err)
	_, err = f.router.Route(ctx, webhook.MessageEvent{ReplyToken: "TA", Message: webhook.AudioMessage{ID: "300", Duration: 1200, Provider: webhook.PlatformHosted{}}})
	require.NoError(t, err)

	image, _ := f.transport.ReplyFor("TI")
	assert.Equal(t, []messaging.Message{messaging.ImageMessage{
		OriginalContentURL: testBaseURL + "/downloaded/100.jpg",
		PreviewImageURL:    testBaseURL + "/downloaded/100-preview.jpg",
	}}, image.Messages)
	video, _ := f.transport.ReplyFor("TV")
	assert.Equal(t, []messaging.Message{messaging.VideoMessage{
		OriginalContentURL: testBaseURL + "/downloaded/200.mp4",
		PreviewImageURL:    testBaseURL + "/downloaded/200-preview.jpg",
	}}, video.Messages)
	audio, _ := f.transport.ReplyFor("TA")
	assert.Equal(t, []messaging.Message{messaging.AudioMessage{
		OriginalContentURL: testBaseURL + "/downloaded/300.m4a",
		Duration:           1200,
	}}, audio.Messages)

	assert.Equal(t, []string{"100:image", "200:video", "300:audio"}, f.media.fetched)
	assert.Equal(t, []string{"100.jpg", "200.mp4"}, f.media.previewed)
}

func TestRouteMediaExternallyHosted(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t)
	ctx := context.Background()
	ext := webhook.ExternallyHosted{OriginalContentURL: "https://cdn/o", PreviewImageURL: "https://cdn/p"}
	_, err := f.router.Route(ctx, webhook.MessageEvent{ReplyToken: "TI", Message: webhook.ImageMessage{ID: "1", Provider: ext}})
	require.NoError(t, err)
	_, err = f.router.Route(ctx, webhook.MessageEvent{ReplyToken: "TA", Message: webhook.AudioMessage{ID: "2", Duration: 60, Provider: ext}})
	require.NoError(t, err)

	image, _ := f.transport.ReplyFor("TI")
	assert.Equal(t, []messaging.Message{messaging.ImageMessage{OriginalContentURL: "https://cdn/o", PreviewImageURL: "https://cdn/p"}}, image.Messages)
	audio, _ := f.transport.ReplyFor("TA")
	assert.Equal(t, []messaging.Message{messaging.AudioMessage{OriginalContentURL: "https://cdn/o", Duration: 60}}, audio.Messages)
	assert.Empty(t, f.media.fetched)
}

func TestRouteMediaTranscodeFailureFailsHandler(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t)
	f.media.previewErr = &media.TranscodeError{Media: media.MediaTypeVideo, Err: errors.New("exit status 1")}

	_, err := f.router.Route(context.Background(), webhook.MessageEvent{ReplyToken: "T", Message: webhook.VideoMessage{ID: "1", Provider: webhook.PlatformHosted{}}})
	assert.ErrorIs(t, err, media.ErrTranscodeFailed)
	assert.Empty(t, f.transport.Replies())
}

func TestRouteReplyFailure(t *testing.T) {
	t.Parallel()

	tr := &messagingtest.Transport{ReplyErr: &messaging.APIError{Op: "reply message", StatusCode: 400, Message: "Invalid reply token"}}
	r := NewRouter(nil, messaging.NewSender(nil, tr), nil, nil, nil, RouterConfig{})
	_, err := r.Route(context.Background(), webhook.FollowEvent{ReplyToken: "T"})
	assert.ErrorIs(t, err, messaging.ErrTransport)
}
