package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andresmejia3/stable/internal/card"
	"github.com/andresmejia3/stable/internal/config"
	"github.com/andresmejia3/stable/internal/race"
	"github.com/andresmejia3/stable/internal/store"
	"github.com/andresmejia3/stable/internal/strategy"
	"github.com/andresmejia3/stable/internal/types"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cometCard = `{"name": "Comet", "speed": 70, "stamina": 65, "jump": 60, "tuning": {"brightness": 1.0, "contrast": 1.0, "color": 1.0, "sharpness": 1.0, "blur": false}}`

func newTestServer(t *testing.T, st store.Store) http.Handler {
	t.Helper()
	return NewServer(config.DefaultConfig(), st, nil).Routes()
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close(context.Background()) })
	return st
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{120, 80, 40, 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// upload builds a multipart request. A nil image omits the part.
func upload(t *testing.T, path string, img []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if img != nil {
		part, err := mw.CreateFormFile("image", "horse.png")
		require.NoError(t, err)
		_, err = part.Write(img)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := serve(newTestServer(t, nil), httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "running", body["status"])
	assert.Equal(t, config.AppVersion, body["version"])
}

func TestAdjust(t *testing.T) {
	h := newTestServer(t, nil)
	src := pngBytes(t, 8, 6)

	rec := serve(h, upload(t, "/api/v1/adjust", src, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	out, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 6), out.Bounds())

	// Default tuning is identity.
	r, g, b, _ := out.At(3, 3).RGBA()
	assert.Equal(t, []uint32{120, 80, 40}, []uint32{r >> 8, g >> 8, b >> 8})
}

func TestAdjustErrors(t *testing.T) {
	h := newTestServer(t, nil)

	tests := []struct {
		name   string
		img    []byte
		fields map[string]string
		want   string
	}{
		{"NoImage", nil, nil, "no image loaded"},
		{"Garbage", []byte("definitely not an image"), nil, "not a decodable image"},
		{"BadNumber", pngBytes(t, 2, 2), map[string]string{"brightness": "bright"}, "not a number"},
		{"OutOfRange", pngBytes(t, 2, 2), map[string]string{"contrast": "3.5"}, "contrast"},
		{"NaN", pngBytes(t, 2, 2), map[string]string{"brightness": "NaN"}, "brightness"},
		{"Inf", pngBytes(t, 2, 2), map[string]string{"sharpness": "+Inf"}, "sharpness"},
		{"BadBool", pngBytes(t, 2, 2), map[string]string{"blur": "maybe"}, "blur"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, upload(t, "/api/v1/adjust", tt.img, tt.fields))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestUploadTooLarge(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.MaxUploadMB = 1
	h := NewServer(cfg, nil, nil).Routes()

	rec := serve(h, upload(t, "/api/v1/adjust", bytes.Repeat([]byte{1}, 2<<20), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCardStats(t *testing.T) {
	h := newTestServer(t, nil)

	rec := serve(h, upload(t, "/api/v1/cards/stats", pngBytes(t, 4, 4), map[string]string{
		"name":       "Storm",
		"speed":      "55",
		"brightness": "1.25",
		"blur":       "true",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, `attachment; filename="Storm_stats.json"`, rec.Header().Get("Content-Disposition"))

	got, err := card.Parse(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, types.StatCard{
		Name: "Storm", Speed: 55, Stamina: 65, Jump: 60,
		Tuning: types.Tuning{Brightness: 1.25, Contrast: 1.0, Color: 1.0, Sharpness: 1.0, Blur: true},
	}, got)
}

func TestCardStatsDefaults(t *testing.T) {
	rec := serve(newTestServer(t, nil), upload(t, "/api/v1/cards/stats", pngBytes(t, 4, 4), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	want, err := card.Serialize(config.DefaultConfig().Defaults.Card())
	require.NoError(t, err)
	assert.Equal(t, string(want), rec.Body.String())
}

func TestCardStatsValidation(t *testing.T) {
	h := newTestServer(t, nil)

	for _, fields := range []map[string]string{
		{"speed": "0"},
		{"jump": "101"},
		{"stamina": "6.5"},
		{"name": ""},
		{"brightness": "NaN"},
		{"color": "nan"},
	} {
		rec := serve(h, upload(t, "/api/v1/cards/stats", pngBytes(t, 4, 4), fields))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "fields %v", fields)
	}

	rec := serve(h, upload(t, "/api/v1/cards/stats", nil, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Disposition"), "nothing is exported without an image")
}

func TestCardImage(t *testing.T) {
	h := newTestServer(t, nil)

	rec := serve(h, upload(t, "/api/v1/cards/image", pngBytes(t, 5, 7), map[string]string{"name": "a/b"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, `attachment; filename="a_b.png"`, rec.Header().Get("Content-Disposition"))

	out, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 5, 7), out.Bounds())
}

func TestPreview(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Preview.Width, cfg.Preview.Height = 120, 160
	h := NewServer(cfg, nil, nil).Routes()

	rec := serve(h, upload(t, "/api/v1/preview", pngBytes(t, 300, 200), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 120, 160), out.Bounds())
}

func raceRequest(t *testing.T, req RaceRequest) *http.Request {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	return httptest.NewRequest(http.MethodPost, "/api/v1/race", bytes.NewReader(body))
}

func TestRace(t *testing.T) {
	h := newTestServer(t, nil)
	seed := uint64(42)
	storm := strings.Replace(cometCard, "Comet", "Storm", 1)

	rec := serve(h, raceRequest(t, RaceRequest{A: cometCard, B: storm, Seed: &seed}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got types.RaceResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))

	want, err := race.NewSeeded(seed).Race([]byte(cometCard), []byte(storm))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRaceInvalidCard(t *testing.T) {
	h := newTestServer(t, nil)

	rec := serve(h, raceRequest(t, RaceRequest{A: cometCard, B: `{"name": "Storm"}`}))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body RaceError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, race.Message, body.Error)
	assert.Contains(t, body.Detail, "horse B")
	assert.Equal(t, cometCard, body.A)
	assert.Equal(t, `{"name": "Storm"}`, body.B)

	rec = serve(h, httptest.NewRequest(http.MethodPost, "/api/v1/race", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegistryWithoutStore(t *testing.T) {
	h := newTestServer(t, nil)

	for _, path := range []string{"/api/v1/cards", "/api/v1/races"} {
		rec := serve(h, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}

	rec := serve(h, raceRequest(t, RaceRequest{A: cometCard, B: cometCard, Record: true}))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRegistry(t *testing.T) {
	h := newTestServer(t, newTestStore(t))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/cards", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = serve(h, upload(t, "/api/v1/cards/image", pngBytes(t, 4, 4), map[string]string{"register": "true"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "1", rec.Header().Get("X-Card-ID"))

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/cards", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var cards []store.CardRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cards))
	require.Len(t, cards, 1)
	assert.Equal(t, "Comet", cards[0].Card.Name)
	assert.Len(t, cards[0].ImageID, 64)

	seed := uint64(7)
	rec = serve(h, raceRequest(t, RaceRequest{A: cometCard, B: cometCard, Seed: &seed, Record: true}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/races?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var races []store.RaceRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &races))
	require.Len(t, races, 1)
	assert.Equal(t, "Comet", races[0].NameA)

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/races?limit=-1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func fieldRequest(t *testing.T, req FieldRequest) *http.Request {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	return httptest.NewRequest(http.MethodPost, "/api/v1/field", bytes.NewReader(body))
}

type fieldBody struct {
	Distance string                    `json:"distance"`
	Field    []strategy.Assignment     `json:"field"`
	Mix      map[strategy.Strategy]int `json:"mix"`
}

func cardText(t *testing.T, c types.StatCard) string {
	t.Helper()
	b, err := card.Serialize(c)
	require.NoError(t, err)
	return string(b)
}

func TestField(t *testing.T) {
	st := newTestStore(t)
	h := newTestServer(t, st)
	ctx := context.Background()
	for _, name := range []string{"Even", "Steady"} {
		_, err := st.SaveCard(ctx, card.Build(name, 60, 60, 60, types.Identity()), "img", 1)
		require.NoError(t, err)
	}

	rec := serve(h, fieldRequest(t, FieldRequest{
		Cards: []string{
			cardText(t, card.Build("Dash", 90, 60, 30, types.Identity())),
			cardText(t, card.Build("Leap", 30, 60, 90, types.Identity())),
		},
		Registry: true,
		Distance: "9000",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body fieldBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "long", body.Distance)
	require.Len(t, body.Field, 4)

	got := map[string]strategy.Strategy{}
	for _, a := range body.Field {
		got[a.Name] = a.Strategy
	}
	assert.Equal(t, map[string]strategy.Strategy{
		"Dash": strategy.FrontRunner, "Leap": strategy.Closer,
		"Even": strategy.Presser, "Steady": strategy.Stalker,
	}, got)
	assert.Equal(t, 1, body.Mix[strategy.Closer])
	assert.Equal(t, strategy.ParamsFor(strategy.FrontRunner, strategy.Long), body.Field[0].Params)
}

func TestFieldErrors(t *testing.T) {
	h := newTestServer(t, nil)

	rec := serve(h, fieldRequest(t, FieldRequest{Cards: []string{cometCard, `{"name": "Ghost"}`}}))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var fe FieldError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fe))
	assert.Equal(t, 1, fe.Index)
	assert.Equal(t, race.Message, fe.Error)

	tests := []struct {
		name string
		req  FieldRequest
		code int
	}{
		{"Empty field", FieldRequest{}, http.StatusBadRequest},
		{"Bad distance", FieldRequest{Cards: []string{cometCard}, Distance: "marathon"}, http.StatusBadRequest},
		{"Registry without store", FieldRequest{Cards: []string{cometCard}, Registry: true}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, fieldRequest(t, tt.req))
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}

	rec = serve(h, httptest.NewRequest(http.MethodPost, "/api/v1/field", strings.NewReader("[")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
