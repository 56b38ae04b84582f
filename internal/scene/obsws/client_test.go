package obsws

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"golang.org/x/net/websocket"

	"github.com/xtding233/gacha-stage/internal/scene"
)

const (
	testSalt      = "lM1GncleQOaCu9lT1yeUZhFYnqhsLLP1G5lAGo3ixaI="
	testChallenge = "+IxH4CnCiqpX1rM9scsNynZzbOe4KhDeYcTNS3PDaeY="
)

// fakeOBS answers just enough of the protocol for the stage.
type fakeOBS struct {
	password string

	mu       sync.Mutex
	inputs   map[string]int64
	filters  map[string]map[string]float64
	settings map[string]string
	next     int64
	requests []string
}

func newFakeOBS(password string) *fakeOBS {
	return &fakeOBS{
		password: password,
		inputs:   map[string]int64{"GachaAnchor": 1},
		filters:  map[string]map[string]float64{},
		settings: map[string]string{},
		next:     1,
	}
}

func (f *fakeOBS) handle(conn *websocket.Conn) {
	defer conn.Close()
	hello := map[string]any{"op": opHello, "d": map[string]any{"obsWebSocketVersion": "5.0.0", "rpcVersion": 1}}
	if f.password != "" {
		hello["d"].(map[string]any)["authentication"] = map[string]any{"salt": testSalt, "challenge": testChallenge}
	}
	if err := websocket.JSON.Send(conn, hello); err != nil {
		return
	}
	var ident []byte
	if err := websocket.Message.Receive(conn, &ident); err != nil {
		return
	}
	if f.password != "" && gjson.GetBytes(ident, "d.authentication").String() != authString(f.password, testSalt, testChallenge) {
		return
	}
	if err := websocket.JSON.Send(conn, map[string]any{"op": opIdentified, "d": map[string]any{"negotiatedRpcVersion": 1}}); err != nil {
		return
	}
	for {
		var msg []byte
		if err := websocket.Message.Receive(conn, &msg); err != nil {
			return
		}
		d := gjson.GetBytes(msg, "d")
		data, code := f.answer(d.Get("requestType").String(), d.Get("requestData"))
		resp := map[string]any{
			"requestType":   d.Get("requestType").String(),
			"requestId":     d.Get("requestId").String(),
			"requestStatus": map[string]any{"result": code == 100, "code": code},
		}
		if data != nil {
			resp["responseData"] = data
		}
		if err := websocket.JSON.Send(conn, map[string]any{"op": opRequestResponse, "d": resp}); err != nil {
			return
		}
	}
}

func (f *fakeOBS) answer(typ string, data gjson.Result) (map[string]any, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, typ)
	switch typ {
	case "GetSceneItemId":
		id, ok := f.inputs[data.Get("sourceName").String()]
		if !ok {
			return nil, codeResourceNotFound
		}
		return map[string]any{"sceneItemId": id}, 100
	case "GetSceneItemTransform":
		return map[string]any{"sceneItemTransform": map[string]any{
			"positionX": 960.0, "positionY": 900.0, "scaleX": 1.0, "scaleY": 1.0,
			"alignment": 5, "sourceWidth": 400.0, "sourceHeight": 100.0,
		}}, 100
	case "CreateInput":
		name := data.Get("inputName").String()
		if _, dup := f.inputs[name]; dup {
			return nil, 601
		}
		f.next++
		f.inputs[name] = f.next
		f.settings[name] = data.Get("inputSettings").Raw
		return map[string]any{"sceneItemId": f.next}, 100
	case "SetSourceFilterSettings":
		fs, ok := f.filters[data.Get("sourceName").String()]
		if !ok {
			return nil, codeResourceNotFound
		}
		fs[data.Get("filterName").String()] = data.Get("filterSettings.brightness").Float()
		return nil, 100
	case "CreateSourceFilter":
		f.filters[data.Get("sourceName").String()] = map[string]float64{
			data.Get("filterName").String(): data.Get("filterSettings.brightness").Float(),
		}
		return nil, 100
	case "SetInputSettings":
		f.settings[data.Get("inputName").String()] = data.Get("inputSettings").Raw
		return nil, 100
	case "RemoveInput":
		name := data.Get("inputName").String()
		if _, ok := f.inputs[name]; !ok {
			return nil, codeResourceNotFound
		}
		delete(f.inputs, name)
		return nil, 100
	case "SetSceneItemTransform", "SetSceneItemEnabled":
		return nil, 100
	default:
		return nil, 204
	}
}

// serveFake starts f and returns a config pointing at it.
func serveFake(t *testing.T, f *fakeOBS, password string) Config {
	t.Helper()
	srv := httptest.NewServer(websocket.Server{Handler: f.handle})
	t.Cleanup(srv.Close)

	host, port, err := net.SplitHostPort(strings.TrimPrefix(srv.URL, "http://"))
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return Config{Host: host, Port: p, Password: password, Timeout: 2 * time.Second}
}

func quietLog() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func dialFake(t *testing.T, f *fakeOBS, password string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := Dial(ctx, serveFake(t, f, password), quietLog())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestDialWithAuth(t *testing.T) {
	c := dialFake(t, newFakeOBS("hunter2"), "hunter2")
	g, err := c.GetElementGeometry(context.Background(), "Gacha", "GachaAnchor")
	require.NoError(t, err)
	assert.Equal(t, 960.0, g.X)
	assert.Equal(t, 400.0, g.Width)
	assert.True(t, g.Alignment.Has(scene.AlignLeft))
	assert.True(t, g.Alignment.Has(scene.AlignTop))
}

func TestMissingElementIsNotFound(t *testing.T) {
	c := dialFake(t, newFakeOBS(""), "")
	_, err := c.GetElementGeometry(context.Background(), "Gacha", "nope")
	assert.ErrorIs(t, err, scene.ErrNotFound)
	var re *RequestError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "GetSceneItemId", re.Request)
}

func TestCardLifecycle(t *testing.T) {
	f := newFakeOBS("")
	c := dialFake(t, f, "")
	ctx := context.Background()

	el, err := c.CreateElement(ctx, "Gacha", "card", scene.ImageSettings{Path: "/art/a.png"}, false)
	require.NoError(t, err)
	assert.Equal(t, "card", el.Name)
	assert.NotZero(t, el.ID)

	require.NoError(t, c.SetElementTransform(ctx, "Gacha", el.ID, scene.Transform{X: 1, Y: 2, ScaleX: 0.5, ScaleY: 0.5}))
	require.NoError(t, c.SetElementEnabled(ctx, "Gacha", el.ID, true))

	// first call creates the filter, second updates it
	require.NoError(t, c.SetFilterStrength(ctx, "card", "tint", 1))
	require.NoError(t, c.SetFilterStrength(ctx, "card", "tint", 0.25))
	f.mu.Lock()
	assert.Equal(t, -0.25, f.filters["card"]["tint"])
	f.mu.Unlock()

	_, err = c.CreateElement(ctx, "Gacha", "lvl", scene.TextSettings{Text: "3", Font: "Arial", Size: 28, Color: 0xFF112233}, false)
	require.NoError(t, err)
	require.NoError(t, c.SetElementSettings(ctx, "lvl", scene.TextSettings{Text: "MAX", Color: 0xFF112233}))
	f.mu.Lock()
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(f.settings["lvl"]), &got))
	f.mu.Unlock()
	assert.Equal(t, "MAX", got["text"])
	assert.Equal(t, float64(0xFF332211), got["color"])

	require.NoError(t, c.RemoveElement(ctx, "card"))
	assert.ErrorIs(t, c.RemoveElement(ctx, "card"), scene.ErrNotFound)
}

func TestClosedConnectionFailsRequests(t *testing.T) {
	c := dialFake(t, newFakeOBS(""), "")
	require.NoError(t, c.Close())
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("reader did not stop")
	}
	_, err := c.CreateElement(context.Background(), "Gacha", "x", scene.ImageSettings{}, true)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestAuthString(t *testing.T) {
	// same input always hashes the same; different passwords differ
	a := authString("pw", testSalt, testChallenge)
	assert.Equal(t, a, authString("pw", testSalt, testChallenge))
	assert.NotEqual(t, a, authString("other", testSalt, testChallenge))
	assert.Equal(t, uint32(0xFF332211), abgr(0xFF112233))
}
