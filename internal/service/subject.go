package service

import (
	"strings"

	"freshservice/ticketer/internal/domain"

	"github.com/PuerkitoBio/goquery"
)

const subjectPreviewLen = 30

// BuildSubject summarises the request as
// "Request for <first> <last>: <first 30 characters of the description>".
func BuildSubject(user domain.User, description string) string {
	preview := []rune(plainText(description))
	summary := string(preview)
	if len(preview) > subjectPreviewLen {
		summary = string(preview[:subjectPreviewLen]) + "..."
	}
	return "Request for " + user.FirstName + " " + user.LastName + ": " + summary
}

// plainText strips markup from descriptions pasted as HTML.
func plainText(description string) string {
	if !strings.ContainsAny(description, "<&") {
		return description
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(description))
	if err != nil {
		return description
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
