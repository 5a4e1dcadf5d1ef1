package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ChoiceKind tags the shape found under a category tree key.
type ChoiceKind int

const (
	ChoiceEmpty         ChoiceKind = iota // null, scalar, or anything unrecognised
	ChoiceSubcategories                   // JSON object: name -> Choice
	ChoiceItems                           // JSON array of strings
)

func (k ChoiceKind) String() string {
	switch k {
	case ChoiceSubcategories:
		return "subcategories"
	case ChoiceItems:
		return "items"
	default:
		return "empty"
	}
}

// Choice is the value stored under one category tree key. Exactly one of
// Subcategories or Items is meaningful, selected by Kind.
type Choice struct {
	Kind          ChoiceKind
	Subcategories *Choices
	Items         []string
}

func EmptyChoice() Choice {
	return Choice{Kind: ChoiceEmpty}
}

func SubcategoryChoice(children *Choices) Choice {
	return Choice{Kind: ChoiceSubcategories, Subcategories: children}
}

func ItemChoice(items ...string) Choice {
	return Choice{Kind: ChoiceItems, Items: items}
}

// Choices is an ordered category tree level. Names keep the order in which
// the server listed them. The zero value and a nil *Choices are empty.
type Choices struct {
	names []string
	nodes map[string]Choice
}

func NewChoices() *Choices {
	return &Choices{nodes: make(map[string]Choice)}
}

// Add stores choice under name. Re-adding a name replaces its value and
// keeps its original position.
func (c *Choices) Add(name string, choice Choice) *Choices {
	if c.nodes == nil {
		c.nodes = make(map[string]Choice)
	}
	if _, exists := c.nodes[name]; !exists {
		c.names = append(c.names, name)
	}
	c.nodes[name] = choice
	return c
}

func (c *Choices) Len() int {
	if c == nil {
		return 0
	}
	return len(c.names)
}

func (c *Choices) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, len(c.names))
	copy(names, c.names)
	return names
}

func (c *Choices) Get(name string) (Choice, bool) {
	if c == nil {
		return Choice{}, false
	}
	choice, ok := c.nodes[name]
	return choice, ok
}

// UnmarshalJSON never fails on an unexpected shape: a non-object document
// decodes to an empty tree and unexpected values decode to EmptyChoice.
// Only malformed JSON is reported.
func (c *Choices) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to read category choices: %w", err)
	}

	decoded := NewChoices()
	switch tok {
	case json.Delim('{'):
		decoded, err = decodeObject(dec)
	case json.Delim('['):
		_, _, err = decodeArray(dec)
	}
	if err != nil {
		return fmt.Errorf("failed to decode category choices: %w", err)
	}

	*c = *decoded
	return nil
}

func (c Choices) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range c.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		value, err := c.nodes[name].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (ch Choice) MarshalJSON() ([]byte, error) {
	switch ch.Kind {
	case ChoiceSubcategories:
		if ch.Subcategories == nil {
			return []byte("{}"), nil
		}
		return ch.Subcategories.MarshalJSON()
	case ChoiceItems:
		if ch.Items == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(ch.Items)
	default:
		return []byte("null"), nil
	}
}

// decodeValue reads the next complete value from dec.
func decodeValue(dec *json.Decoder) (Choice, error) {
	tok, err := dec.Token()
	if err != nil {
		return Choice{}, err
	}

	switch tok {
	case json.Delim('{'):
		children, err := decodeObject(dec)
		if err != nil {
			return Choice{}, err
		}
		return SubcategoryChoice(children), nil
	case json.Delim('['):
		items, ok, err := decodeArray(dec)
		if err != nil {
			return Choice{}, err
		}
		if !ok {
			return EmptyChoice(), nil
		}
		return ItemChoice(items...), nil
	}

	return EmptyChoice(), nil
}

// decodeObject reads object members after the opening brace, including the
// closing brace.
func decodeObject(dec *json.Decoder) (*Choices, error) {
	choices := NewChoices()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}

		value, err := decodeValue(dec)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", name, err)
		}
		choices.Add(name, value)
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return choices, nil
}

// decodeArray reads array elements after the opening bracket, including the
// closing bracket. ok is false when any element is not a string.
func decodeArray(dec *json.Decoder) (items []string, ok bool, err error) {
	items = make([]string, 0)
	ok = true
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, false, err
		}

		switch v := tok.(type) {
		case string:
			items = append(items, v)
		case json.Delim:
			ok = false
			if v == '{' {
				_, err = decodeObject(dec)
			} else {
				_, _, err = decodeArray(dec)
			}
			if err != nil {
				return nil, false, err
			}
		default:
			ok = false
		}
	}

	if _, err := dec.Token(); err != nil {
		return nil, false, err
	}
	return items, ok, nil
}
