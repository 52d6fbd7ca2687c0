package api

import (
	"errors"
	"fmt"
	"image"
	"net/http"
	"strconv"

	"github.com/andresmejia3/stable/internal/card"
	"github.com/andresmejia3/stable/internal/tuning"
	"github.com/andresmejia3/stable/internal/types"
)

// errNoImage is reported when a request carries no image part.
var errNoImage = errors.New("no image loaded")

// parseUpload limits the body size and parses the multipart form.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes())
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes()); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("upload exceeds %d bytes", tooLarge.Limit)
		}
		return fmt.Errorf("invalid multipart form: %w", err)
	}
	return nil
}

// readImage decodes the "image" part into an opaque RGB image.
func readImage(r *http.Request) (*image.NRGBA, error) {
	file, _, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, errNoImage
		}
		return nil, err
	}
	defer file.Close()

	img, _, err := tuning.Decode(file)
	return img, err
}

// parseTuningForm reads the four factors and the blur toggle, falling back to
// the configured defaults for absent fields.
func (s *Server) parseTuningForm(r *http.Request) (types.Tuning, error) {
	t := s.cfg.Defaults.Tuning()

	floats := []struct {
		field string
		dst   *float64
	}{
		{"brightness", &t.Brightness},
		{"contrast", &t.Contrast},
		{"color", &t.Color},
		{"sharpness", &t.Sharpness},
	}
	for _, f := range floats {
		v := r.FormValue(f.field)
		if v == "" {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return t, fmt.Errorf("%s: %q is not a number", f.field, v)
		}
		*f.dst = n
	}

	if v := r.FormValue("blur"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return t, fmt.Errorf("blur: %q is not a boolean", v)
		}
		t.Blur = b
	}

	if err := card.ValidateTuning(t); err != nil {
		return t, err
	}
	return t, nil
}

// parseCardForm reads name, stats and tuning, falling back to the configured defaults.
func (s *Server) parseCardForm(r *http.Request) (types.StatCard, error) {
	t, err := s.parseTuningForm(r)
	if err != nil {
		return types.StatCard{}, err
	}

	d := s.cfg.Defaults
	name := d.Name
	if r.Form.Has("name") {
		name = r.FormValue("name")
	}

	stats := []struct {
		field string
		dst   *int
	}{
		{"speed", &d.Speed},
		{"stamina", &d.Stamina},
		{"jump", &d.Jump},
	}
	for _, f := range stats {
		v := r.FormValue(f.field)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return types.StatCard{}, fmt.Errorf("%s: %q is not an integer", f.field, v)
		}
		*f.dst = n
	}

	c := card.Build(name, d.Speed, d.Stamina, d.Jump, t)
	if err := card.Validate(c); err != nil {
		return types.StatCard{}, err
	}
	return c, nil
}
