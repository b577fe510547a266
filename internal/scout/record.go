package scout

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

const (
	DefaultName     = "Unknown Business"
	DefaultType     = "Business"
	DefaultLocation = "Unknown Location"
	DefaultRating   = "N/A"
)

var errEmptyRecord = errors.New("scout: record has no name and no contact")

// text decodes a JSON string, number or bool into a string. Models emit
// ratings as 4.5 as often as "4.5".
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0, bytes.Equal(b, []byte("null")):
		*t = ""
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = text(s)
		return nil
	case bytes.Equal(b, []byte("true")), bytes.Equal(b, []byte("false")):
		*t = text(b)
		return nil
	}
	if _, err := strconv.ParseFloat(string(b), 64); err != nil {
		return errors.New("scout: expected string or number")
	}
	*t = text(b)
	return nil
}

func (t text) String() string { return strings.TrimSpace(string(t)) }

// record is the decoded shape of one scouted business before normalization.
type record struct {
	Name     text `json:"name" prompt_desc:"Business name."`
	Type     text `json:"type" prompt_desc:"Business category, e.g. Plumber." prompt:"optional"`
	Category text `json:"category" prompt:"-"`
	Address  text `json:"address" prompt_desc:"Street address or city." prompt:"optional"`
	Rating   text `json:"rating" prompt_desc:"Public review rating." prompt:"optional"`
	Website  text `json:"website" prompt_desc:"Website URL, empty if none." prompt:"optional"`
	Phone    text `json:"phone" prompt_desc:"Phone number or \"not found\"."`
	Email    text `json:"email" prompt_desc:"Contact email or \"not found\"."`
}

func (r record) validate() error {
	if r.Name.String() == "" && r.Phone.String() == "" && r.Email.String() == "" {
		return errEmptyRecord
	}
	return nil
}

type normalized struct {
	Name, Type, Address, Rating, Website, Phone, Email string
}

func (r record) normalize() normalized {
	n := normalized{
		Name:    orDefault(r.Name.String(), DefaultName),
		Type:    orDefault(r.Type.String(), r.Category.String()),
		Address: orDefault(r.Address.String(), DefaultLocation),
		Rating:  orDefault(r.Rating.String(), DefaultRating),
		Website: r.Website.String(),
		Phone:   r.Phone.String(),
		Email:   r.Email.String(),
	}
	n.Type = orDefault(n.Type, DefaultType)
	if isSentinel(n.Phone) {
		n.Phone = ""
	}
	if isSentinel(n.Email) {
		n.Email = ""
	}
	if isSentinel(n.Website) {
		n.Website = ""
	}
	return n
}

func orDefault(v, def string) string {
	if v == "" || isSentinel(v) {
		return def
	}
	return v
}
