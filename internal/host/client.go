package host

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/ivlev/replaydirector/internal/logging"
	"github.com/ivlev/replaydirector/internal/sequence"
)

const (
	renderPath    = "/replay/render"
	playbackPath  = "/replay/playback"
	recordingPath = "/replay/recording"
)

// Parameters owned by the playback endpoint rather than the render one.
var playbackFields = map[string]string{
	"playbackSpeed": "speed",
}

// Render settings that can be read and set but are not keyframed.
var settingKinds = map[string]sequence.Kind{
	"cameraMoveSpeed": sequence.KindFloat,
	"cameraLookSpeed": sequence.KindFloat,
}

func parameterKind(parameter string) (sequence.Kind, error) {
	if kind, ok := settingKinds[parameter]; ok {
		return kind, nil
	}
	return sequence.ParameterKind(parameter)
}

// Client talks to the replay API the game client serves on localhost.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

type ClientOption func(*Client)

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithInsecureTLS accepts the self-signed certificate the game client uses.
func WithInsecureTLS() ClientOption {
	return func(c *Client) {
		c.client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.client = hc
	}
}

func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 2 * time.Second},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %v", method, path, ErrHostUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Debug("render host error",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"duration", time.Since(start))
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("%s %s returned %d: %w", method, path, resp.StatusCode, ErrHostUnreachable)
		}
		return fmt.Errorf("%s %s returned %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(msg))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// Get reads one parameter and converts it to the kind the catalog declares.
func (c *Client) Get(ctx context.Context, parameter string) (sequence.Value, error) {
	kind, err := parameterKind(parameter)
	if err != nil {
		return sequence.Value{}, err
	}

	path, field := renderPath, parameter
	if f, ok := playbackFields[parameter]; ok {
		path, field = playbackPath, f
	}

	var state map[string]any
	if err := c.do(ctx, http.MethodGet, path, nil, &state); err != nil {
		return sequence.Value{}, err
	}
	raw, ok := state[field]
	if !ok {
		return sequence.Value{}, fmt.Errorf("host state has no %s", parameter)
	}
	return DecodeValue(kind, raw)
}

func (c *Client) Set(ctx context.Context, parameter string, v sequence.Value) error {
	path, field := renderPath, parameter
	if f, ok := playbackFields[parameter]; ok {
		path, field = playbackPath, f
	}
	return c.do(ctx, http.MethodPost, path, map[string]any{field: v.Interface()}, nil)
}

func (c *Client) State(ctx context.Context) (PlaybackState, error) {
	var st PlaybackState
	err := c.do(ctx, http.MethodGet, playbackPath, nil, &st)
	return st, err
}

func (c *Client) Play(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, playbackPath, map[string]any{"paused": false}, nil)
}

func (c *Client) Pause(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, playbackPath, map[string]any{"paused": true}, nil)
}

func (c *Client) Seek(ctx context.Context, t float64) error {
	return c.do(ctx, http.MethodPost, playbackPath, map[string]any{"time": t}, nil)
}

// AdjustTime moves playback relative to the current position, clamped to
// the replay length.
func (c *Client) AdjustTime(ctx context.Context, delta float64) error {
	st, err := c.State(ctx)
	if err != nil {
		return err
	}
	return c.Seek(ctx, clampTime(st.Time+delta, st.Length))
}

func (c *Client) StartRecording(ctx context.Context, r Recording) error {
	r.Recording = true
	return c.do(ctx, http.MethodPost, recordingPath, r, nil)
}

func (c *Client) StopRecording(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, recordingPath, map[string]any{"recording": false}, nil)
}

func (c *Client) RecordingState(ctx context.Context) (Recording, error) {
	var r Recording
	err := c.do(ctx, http.MethodGet, recordingPath, nil, &r)
	return r, err
}

func clampTime(t, length float64) float64 {
	if t < 0 {
		return 0
	}
	if length > 0 && t > length {
		return length
	}
	return t
}

// DecodeValue converts a JSON-decoded host value into a typed Value.
func DecodeValue(kind sequence.Kind, raw any) (sequence.Value, error) {
	switch kind {
	case sequence.KindBool:
		b, ok := raw.(bool)
		if !ok {
			return sequence.Value{}, fmt.Errorf("want bool, got %T: %w", raw, sequence.ErrKindMismatch)
		}
		return sequence.BoolValue(b), nil
	case sequence.KindFloat:
		f, ok := raw.(float64)
		if !ok {
			return sequence.Value{}, fmt.Errorf("want number, got %T: %w", raw, sequence.ErrKindMismatch)
		}
		return sequence.FloatValue(f), nil
	case sequence.KindPath:
		s, ok := raw.(string)
		if !ok {
			return sequence.Value{}, fmt.Errorf("want string, got %T: %w", raw, sequence.ErrKindMismatch)
		}
		return sequence.PathValue(s), nil
	case sequence.KindVector, sequence.KindRotation:
		var vec sequence.Vector
		if err := decodeComponents(raw, &vec); err != nil {
			return sequence.Value{}, err
		}
		return sequence.Value{Kind: kind, Vector: vec}, nil
	case sequence.KindColor:
		var col sequence.Color
		if err := decodeComponents(raw, &col); err != nil {
			return sequence.Value{}, err
		}
		return sequence.Value{Kind: kind, Color: col}, nil
	}
	return sequence.Value{}, errors.New("unknown value kind")
}

func decodeComponents(raw any, out any) error {
	if _, ok := raw.(map[string]any); !ok {
		return fmt.Errorf("want object, got %T: %w", raw, sequence.ErrKindMismatch)
	}
	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Metadata:         &md,
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("decode components: %v: %w", err, sequence.ErrKindMismatch)
	}
	if len(md.Unset) > 0 {
		return fmt.Errorf("missing components %v: %w", md.Unset, sequence.ErrKindMismatch)
	}
	return nil
}
