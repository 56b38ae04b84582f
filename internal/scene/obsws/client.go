// Package obsws implements scene.Client over obs-websocket protocol v5.
package obsws

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"golang.org/x/net/websocket"

	"github.com/xtding233/gacha-stage/internal/scene"
)

const subprotocol = "obswebsocket.json"

// op codes
const (
	opHello           = 0
	opIdentify        = 1
	opIdentified      = 2
	opRequest         = 6
	opRequestResponse = 7
)

// status codes this client reacts to
const (
	codeResourceNotFound = 600
)

// silhouetteKind is the filter attached to cards; brightness -1 renders solid black.
const silhouetteKind = "color_filter_v2"

var ErrClosed = errors.New("obs connection closed")

// RequestError is a request the server answered with a failure status.
type RequestError struct {
	Request string
	Code    int
	Comment string
}

func (e *RequestError) Error() string {
	if e.Comment != "" {
		return fmt.Sprintf("obs %s: code %d: %s", e.Request, e.Code, e.Comment)
	}
	return fmt.Sprintf("obs %s: code %d", e.Request, e.Code)
}

// Is maps missing resources onto scene.ErrNotFound.
func (e *RequestError) Is(target error) bool {
	return target == scene.ErrNotFound && e.Code == codeResourceNotFound
}

type Config struct {
	Host     string
	Port     int
	Password string
	Timeout  time.Duration // per request; 0 means wait for ctx only
}

type response struct {
	data gjson.Result
	err  error
}

// Client is safe for concurrent use. Requests are written under a lock and answered by a
// single reader goroutine that routes responses by request id.
type Client struct {
	conn    *websocket.Conn
	log     logrus.FieldLogger
	timeout time.Duration

	wmu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan response
	err     error
	done    chan struct{}
}

var _ scene.Client = (*Client)(nil)

// Dial connects and completes the identify handshake.
func Dial(ctx context.Context, cfg Config, log logrus.FieldLogger) (*Client, error) {
	host := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	wsCfg, err := websocket.NewConfig("ws://"+host, "http://"+host)
	if err != nil {
		return nil, fmt.Errorf("obs config: %w", err)
	}
	wsCfg.Protocol = []string{subprotocol}
	conn, err := wsCfg.DialContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("dial obs at %s: %w", host, err)
	}
	c := &Client{
		conn:    conn,
		log:     log,
		timeout: cfg.Timeout,
		pending: make(map[string]chan response),
		done:    make(chan struct{}),
	}
	if err := c.identify(ctx, cfg.Password); err != nil {
		_ = conn.Close()
		return nil, err
	}
	go c.readLoop()
	log.WithField("host", host).Info("connected to obs")
	return c, nil
}

func (c *Client) identify(ctx context.Context, password string) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(deadline)
		defer c.conn.SetDeadline(time.Time{})
	}
	var hello []byte
	if err := websocket.Message.Receive(c.conn, &hello); err != nil {
		return fmt.Errorf("obs hello: %w", err)
	}
	if op := gjson.GetBytes(hello, "op").Int(); op != opHello {
		return fmt.Errorf("obs hello: unexpected op %d", op)
	}
	d := map[string]any{"rpcVersion": 1, "eventSubscriptions": 0}
	if auth := gjson.GetBytes(hello, "d.authentication"); auth.Exists() {
		if password == "" {
			return errors.New("obs requires a password")
		}
		d["authentication"] = authString(password, auth.Get("salt").String(), auth.Get("challenge").String())
	}
	if err := c.send(map[string]any{"op": opIdentify, "d": d}); err != nil {
		return fmt.Errorf("obs identify: %w", err)
	}
	var ident []byte
	if err := websocket.Message.Receive(c.conn, &ident); err != nil {
		return fmt.Errorf("obs identify: %w", err)
	}
	if op := gjson.GetBytes(ident, "op").Int(); op != opIdentified {
		return fmt.Errorf("obs identify: unexpected op %d", op)
	}
	return nil
}

// authString is base64(sha256(base64(sha256(password+salt)) + challenge)).
func authString(password, salt, challenge string) string {
	secret := sha256.Sum256([]byte(password + salt))
	secretB64 := base64.StdEncoding.EncodeToString(secret[:])
	auth := sha256.Sum256([]byte(secretB64 + challenge))
	return base64.StdEncoding.EncodeToString(auth[:])
}

func (c *Client) send(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return websocket.Message.Send(c.conn, string(b))
}

func (c *Client) readLoop() {
	var err error
	for {
		var msg []byte
		if err = websocket.Message.Receive(c.conn, &msg); err != nil {
			break
		}
		if gjson.GetBytes(msg, "op").Int() != opRequestResponse {
			continue
		}
		d := gjson.GetBytes(msg, "d")
		id := d.Get("requestId").String()
		c.mu.Lock()
		ch, ok := c.pending[id]
		delete(c.pending, id)
		c.mu.Unlock()
		if !ok {
			c.log.WithField("request", id).Debug("obs response for unknown request")
			continue
		}
		status := d.Get("requestStatus")
		if !status.Get("result").Bool() {
			ch <- response{err: &RequestError{
				Request: d.Get("requestType").String(),
				Code:    int(status.Get("code").Int()),
				Comment: status.Get("comment").String(),
			}}
			continue
		}
		ch <- response{data: d.Get("responseData")}
	}

	c.mu.Lock()
	c.err = fmt.Errorf("%w: %w", ErrClosed, err)
	for id, ch := range c.pending {
		ch <- response{err: c.err}
		delete(c.pending, id)
	}
	c.mu.Unlock()
	close(c.done)
	c.log.WithError(err).Warn("obs connection lost")
}

// request sends one request and waits for its response.
func (c *Client) request(ctx context.Context, typ string, data map[string]any) (gjson.Result, error) {
	id := uuid.NewString()
	ch := make(chan response, 1)
	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return gjson.Result{}, err
	}
	c.pending[id] = ch
	c.mu.Unlock()

	drop := func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}
	err := c.send(map[string]any{
		"op": opRequest,
		"d": map[string]any{
			"requestType": typ,
			"requestId":   id,
			"requestData": data,
		},
	})
	if err != nil {
		drop()
		return gjson.Result{}, fmt.Errorf("obs %s: %w", typ, err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	select {
	case r := <-ch:
		return r.data, r.err
	case <-ctx.Done():
		drop()
		return gjson.Result{}, fmt.Errorf("obs %s: %w", typ, ctx.Err())
	}
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Done is closed when the connection is gone.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) GetElementGeometry(ctx context.Context, sceneName, name string) (scene.Geometry, error) {
	id, err := c.request(ctx, "GetSceneItemId", map[string]any{"sceneName": sceneName, "sourceName": name})
	if err != nil {
		return scene.Geometry{}, err
	}
	res, err := c.request(ctx, "GetSceneItemTransform", map[string]any{
		"sceneName":   sceneName,
		"sceneItemId": id.Get("sceneItemId").Int(),
	})
	if err != nil {
		return scene.Geometry{}, err
	}
	t := res.Get("sceneItemTransform")
	return scene.Geometry{
		Transform: scene.Transform{
			X:         t.Get("positionX").Float(),
			Y:         t.Get("positionY").Float(),
			ScaleX:    t.Get("scaleX").Float(),
			ScaleY:    t.Get("scaleY").Float(),
			Rotation:  t.Get("rotation").Float(),
			Alignment: scene.Alignment(t.Get("alignment").Int()),
		},
		Width:  t.Get("sourceWidth").Float(),
		Height: t.Get("sourceHeight").Float(),
	}, nil
}

func (c *Client) CreateElement(ctx context.Context, sceneName, name string, settings scene.Settings, enabled bool) (scene.Element, error) {
	res, err := c.request(ctx, "CreateInput", map[string]any{
		"sceneName":        sceneName,
		"inputName":        name,
		"inputKind":        string(settings.Kind()),
		"inputSettings":    encodeSettings(settings),
		"sceneItemEnabled": enabled,
	})
	if err != nil {
		return scene.Element{}, err
	}
	return scene.Element{ID: res.Get("sceneItemId").Int(), Name: name}, nil
}

func (c *Client) SetElementTransform(ctx context.Context, sceneName string, id int64, t scene.Transform) error {
	_, err := c.request(ctx, "SetSceneItemTransform", map[string]any{
		"sceneName":   sceneName,
		"sceneItemId": id,
		"sceneItemTransform": map[string]any{
			"positionX": t.X,
			"positionY": t.Y,
			"scaleX":    t.ScaleX,
			"scaleY":    t.ScaleY,
			"rotation":  t.Rotation,
			"alignment": int(t.Alignment),
		},
	})
	return err
}

func (c *Client) SetElementEnabled(ctx context.Context, sceneName string, id int64, enabled bool) error {
	_, err := c.request(ctx, "SetSceneItemEnabled", map[string]any{
		"sceneName":        sceneName,
		"sceneItemId":      id,
		"sceneItemEnabled": enabled,
	})
	return err
}

func (c *Client) SetElementSettings(ctx context.Context, name string, settings scene.Settings) error {
	_, err := c.request(ctx, "SetInputSettings", map[string]any{
		"inputName":     name,
		"inputSettings": encodeSettings(settings),
		"overlay":       true,
	})
	return err
}

func (c *Client) SetFilterStrength(ctx context.Context, element, filter string, strength float64) error {
	settings := map[string]any{"brightness": -min(max(strength, 0), 1)}
	_, err := c.request(ctx, "SetSourceFilterSettings", map[string]any{
		"sourceName":     element,
		"filterName":     filter,
		"filterSettings": settings,
	})
	if !errors.Is(err, scene.ErrNotFound) {
		return err
	}
	_, err = c.request(ctx, "CreateSourceFilter", map[string]any{
		"sourceName":     element,
		"filterName":     filter,
		"filterKind":     silhouetteKind,
		"filterSettings": settings,
	})
	return err
}

func (c *Client) RemoveElement(ctx context.Context, name string) error {
	_, err := c.request(ctx, "RemoveInput", map[string]any{"inputName": name})
	return err
}

func encodeSettings(s scene.Settings) map[string]any {
	switch v := s.(type) {
	case scene.ImageSettings:
		return map[string]any{"file": v.Path}
	case scene.TextSettings:
		return map[string]any{
			"text":  v.Text,
			"font":  map[string]any{"face": v.Font, "size": v.Size},
			"color": abgr(v.Color),
		}
	default:
		return map[string]any{}
	}
}

// abgr converts 0xAARRGGBB into the 0xAABBGGRR integers obs expects.
func abgr(argb uint32) uint32 {
	a := argb >> 24 & 0xFF
	r := argb >> 16 & 0xFF
	g := argb >> 8 & 0xFF
	b := argb & 0xFF
	return a<<24 | b<<16 | g<<8 | r
}
