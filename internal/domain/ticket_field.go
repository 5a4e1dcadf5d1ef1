package domain

// CategoryFieldName is the ticket field whose choices form the category tree.
const CategoryFieldName = "category"

type TicketField struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Label   string  `json:"label"`
	Choices Choices `json:"choices"`
}

type TicketFieldList struct {
	TicketFields []TicketField `json:"ticket_fields"`
}

// CategoryTree returns the choices of the category field, or an empty tree
// when the field is not present.
func CategoryTree(fields []TicketField) *Choices {
	for i := range fields {
		if fields[i].Name == CategoryFieldName {
			return &fields[i].Choices
		}
	}
	return NewChoices()
}
