package domain

import "time"

type Size struct {
	Label string  `bson:"label" json:"label" validate:"required,excludesall=0x7C0x2C"`
	Price float64 `bson:"price" json:"price" validate:"gte=0"`
}

type MenuItem struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	Name        string    `bson:"name" json:"name"`
	Description string    `bson:"description" json:"description"`
	Category    string    `bson:"category" json:"category"`
	Price       float64   `bson:"price" json:"price"`
	ImageRef    string    `bson:"image_ref,omitempty" json:"imageRef,omitempty"`
	Available   bool      `bson:"available" json:"available"`
	Sizes       []Size    `bson:"sizes" json:"sizes"`
	Ingredients []string  `bson:"ingredients" json:"ingredients"`
	Extras      []Extra   `bson:"extras" json:"extras"`
	CreatedAt   time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updatedAt"`
}

// SizePrice returns the price of the given size label.
func (m MenuItem) SizePrice(label string) (float64, bool) {
	for _, s := range m.Sizes {
		if s.Label == label {
			return s.Price, true
		}
	}
	return 0, false
}

// Extra looks up an add-on by name.
func (m MenuItem) Extra(name string) (Extra, bool) {
	for _, e := range m.Extras {
		if e.Name == name {
			return e, true
		}
	}
	return Extra{}, false
}

func (m MenuItem) HasIngredient(name string) bool {
	for _, i := range m.Ingredients {
		if i == name {
			return true
		}
	}
	return false
}

type Deal struct {
	ID              string    `bson:"_id,omitempty" json:"id"`
	Title           string    `bson:"title" json:"title"`
	Description     string    `bson:"description" json:"description"`
	DiscountPercent float64   `bson:"discount_percent" json:"discountPercent"`
	MenuItemIDs     []string  `bson:"menu_item_ids" json:"menuItemIds"`
	Active          bool      `bson:"active" json:"active"`
	StartsAt        time.Time `bson:"starts_at" json:"startsAt"`
	EndsAt          time.Time `bson:"ends_at" json:"endsAt"`
	CreatedAt       time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `bson:"updated_at" json:"updatedAt"`
}

// Live reports whether the deal is switched on and inside its window.
// A zero StartsAt or EndsAt leaves that side of the window open.
func (d Deal) Live(now time.Time) bool {
	if !d.Active {
		return false
	}
	if !d.StartsAt.IsZero() && now.Before(d.StartsAt) {
		return false
	}
	if !d.EndsAt.IsZero() && !now.Before(d.EndsAt) {
		return false
	}
	return true
}
