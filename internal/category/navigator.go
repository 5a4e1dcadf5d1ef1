package category

import (
	"context"
	"fmt"
	"slices"

	"freshservice/ticketer/internal/domain"

	log "github.com/sirupsen/logrus"
)

// Chooser asks the operator to pick one of options.
type Chooser interface {
	Choose(ctx context.Context, prompt string, options []string) (string, error)
}

// Path is the selection collected by one traversal. Empty strings mean the
// tree had no deeper level to offer.
type Path struct {
	Category     string `json:"category_name,omitempty"`
	SubCategory  string `json:"sub_category_name,omitempty"`
	ItemCategory string `json:"item_category_name,omitempty"`
}

func (p Path) IsEmpty() bool {
	return p.Category == ""
}

func (p Path) String() string {
	switch {
	case p.Category == "":
		return "<none>"
	case p.SubCategory == "":
		return p.Category
	case p.ItemCategory == "":
		return p.Category + " > " + p.SubCategory
	default:
		return p.Category + " > " + p.SubCategory + " > " + p.ItemCategory
	}
}

type Navigator struct {
	chooser Chooser
}

func NewNavigator(chooser Chooser) *Navigator {
	return &Navigator{chooser: chooser}
}

// Traverse walks tree from the root, asking the chooser at every level that
// has something to offer. Descent stops at the first level that is missing,
// empty or of the wrong shape; the path collected so far is returned.
// An empty tree yields an empty path without consulting the chooser.
func (n *Navigator) Traverse(ctx context.Context, tree *domain.Choices) (Path, error) {
	var path Path

	if tree.Len() == 0 {
		log.Debug("Category tree is empty, nothing to select")
		return path, nil
	}

	categoryName, err := n.choose(ctx, "Select category:", tree.Names())
	if err != nil {
		return Path{}, err
	}
	path.Category = categoryName

	category, _ := tree.Get(categoryName)
	if category.Kind != domain.ChoiceSubcategories || category.Subcategories.Len() == 0 {
		return path, nil
	}

	subName, err := n.choose(ctx, fmt.Sprintf("Select sub-category for '%s':", categoryName), category.Subcategories.Names())
	if err != nil {
		return Path{}, err
	}
	path.SubCategory = subName

	sub, _ := category.Subcategories.Get(subName)
	if sub.Kind != domain.ChoiceItems || len(sub.Items) == 0 {
		return path, nil
	}

	itemName, err := n.choose(ctx, fmt.Sprintf("Select item category for '%s':", subName), sub.Items)
	if err != nil {
		return Path{}, err
	}
	path.ItemCategory = itemName

	return path, nil
}

func (n *Navigator) choose(ctx context.Context, prompt string, options []string) (string, error) {
	selected, err := n.chooser.Choose(ctx, prompt, options)
	if err != nil {
		return "", err
	}
	if !slices.Contains(options, selected) {
		return "", fmt.Errorf("selection %q is not one of the offered options", selected)
	}
	return selected, nil
}
