package domain

import (
	"sort"
	"strings"
	"time"
)

// KeySeparator joins the parts of a composite line key.
const KeySeparator = "|"

// LineKey identifies a cart line by dish, size and customizations.
type LineKey string

type Extra struct {
	Name  string  `bson:"name" json:"name" firestore:"name"`
	Price float64 `bson:"price" json:"price" firestore:"price"`
}

// LineItem is one purchasable configuration in a cart. Name, UnitPrice,
// ImageRef and extra prices are a snapshot taken when the line was added.
type LineItem struct {
	MenuItemID         string   `bson:"menu_item_id" json:"menuItemId" firestore:"menuItemId"`
	Name               string   `bson:"name" json:"name" firestore:"name"`
	UnitPrice          float64  `bson:"unit_price" json:"unitPrice" firestore:"unitPrice"`
	ImageRef           string   `bson:"image_ref,omitempty" json:"imageRef,omitempty" firestore:"imageRef"`
	Quantity           int      `bson:"quantity" json:"quantity" firestore:"quantity"`
	Variant            string   `bson:"variant,omitempty" json:"variant,omitempty" firestore:"variant"`
	RemovedIngredients []string `bson:"removed_ingredients" json:"removedIngredients" firestore:"removedIngredients"`
	Extras             []Extra  `bson:"extras" json:"extras" firestore:"extras"`
}

// keyEscaper escapes separators inside key parts so distinct configurations
// never share a key.
var keyEscaper = strings.NewReplacer(`\`, `\\`, ",", `\,`, KeySeparator, `\`+KeySeparator)

// Key derives the composite key. Ingredient and extra order does not matter.
func (l LineItem) Key() LineKey {
	removed := append([]string(nil), l.RemovedIngredients...)
	sort.Strings(removed)

	extras := make([]string, 0, len(l.Extras))
	for _, e := range l.Extras {
		extras = append(extras, e.Name)
	}
	sort.Strings(extras)

	return LineKey(strings.Join([]string{
		keyEscaper.Replace(l.MenuItemID),
		keyEscaper.Replace(l.Variant),
		joinEscaped(removed),
		joinEscaped(extras),
	}, KeySeparator))
}

func joinEscaped(parts []string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = keyEscaper.Replace(p)
	}
	return strings.Join(escaped, ",")
}

// Clone returns a copy that shares no slices with l.
func (l LineItem) Clone() LineItem {
	c := l
	if l.RemovedIngredients != nil {
		c.RemovedIngredients = append([]string(nil), l.RemovedIngredients...)
	}
	if l.Extras != nil {
		c.Extras = append([]Extra(nil), l.Extras...)
	}
	return c
}

// CartSession is the stored cart document of one identity.
type CartSession struct {
	UserID    string     `bson:"_id" json:"userId"`
	Items     []LineItem `bson:"items" json:"items"`
	ExpiresAt time.Time  `bson:"expires_at" json:"expiresAt"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updatedAt"`
}

// Expired reports whether the session deadline has passed at now.
func (s CartSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
