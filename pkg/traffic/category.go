package traffic

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Category classifies the destination side of an IP conversation.
type Category string

const (
	// None is the zero value. It means no category is selected; it is never a
	// valid record category.
	None     Category = ""
	Internal Category = "internal"
	Proxy    Category = "proxy"
	DNS      Category = "dns"
	External Category = "external"
)

// Categories lists the fixed taxonomy in render order.
var Categories = [...]Category{Internal, Proxy, DNS, External}

// Default colors per category, used for block borders when no source covers
// the whole category.
const (
	ColorInternal = "#24A148"
	ColorProxy    = "#FF9D2B"
	ColorDNS      = "#1066DA"
	ColorExternal = "#EB3449"
)

// Valid reports whether c is one of the four traffic categories.
func (c Category) Valid() bool {
	switch c {
	case Internal, Proxy, DNS, External:
		return true
	}
	return false
}

// DefaultColor returns the category's own color, or "" for None/unknown.
func (c Category) DefaultColor() string {
	switch c {
	case Internal:
		return ColorInternal
	case Proxy:
		return ColorProxy
	case DNS:
		return ColorDNS
	case External:
		return ColorExternal
	}
	return ""
}

// Index returns the position of c in Categories, or -1.
func (c Category) Index() int {
	for i, cat := range Categories {
		if cat == c {
			return i
		}
	}
	return -1
}

func (c Category) String() string {
	if c == None {
		return "none"
	}
	return string(c)
}

// ParseCategory accepts a category name case-insensitively. "none" and ""
// parse to None.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c == "none" || c == None {
		return None, nil
	}
	if !c.Valid() {
		return None, fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

// UnmarshalJSON keeps unknown category strings as-is so that the classifier,
// not the decoder, decides what to do with them.
func (c *Category) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("category: %w", err)
	}
	*c = Category(strings.ToLower(s))
	return nil
}
