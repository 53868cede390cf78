package http

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nachitzaid/food4u/internal/domain"
)

type MenuService interface {
	ListMenu(ctx context.Context, category string) ([]domain.MenuItem, error)
	GetMenuItem(ctx context.Context, id string) (*domain.MenuItem, error)
	CreateMenuItem(ctx context.Context, item domain.MenuItem) (*domain.MenuItem, error)
	UpdateMenuItem(ctx context.Context, id string, item domain.MenuItem) (*domain.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id string) error
	UploadMenuImage(ctx context.Context, id, contentType string, body []byte) (*domain.MenuItem, error)
	ListDeals(ctx context.Context, activeOnly bool) ([]domain.Deal, error)
	CreateDeal(ctx context.Context, deal domain.Deal) (*domain.Deal, error)
	UpdateDeal(ctx context.Context, id string, deal domain.Deal) (*domain.Deal, error)
	DeleteDeal(ctx context.Context, id string) error
}

type MenuHandler struct {
	menu MenuService
	opts HandlerOptions
}

func NewMenuHandler(menu MenuService, opts HandlerOptions) *MenuHandler {
	return &MenuHandler{menu: menu, opts: opts.withDefaults()}
}

type ExtraDTO struct {
	Name  string  `json:"name" validate:"required,excludesall=0x7C0x2C"`
	Price float64 `json:"price" validate:"gte=0"`
}

type MenuItemRequestDTO struct {
	Name        string        `json:"name" validate:"required,max=120"`
	Description string        `json:"description" validate:"max=2000"`
	Category    string        `json:"category" validate:"required,max=60"`
	Price       float64       `json:"price" validate:"gte=0"`
	ImageRef    string        `json:"imageRef" validate:"omitempty,url"`
	Available   bool          `json:"available"`
	Sizes       []domain.Size `json:"sizes" validate:"dive"`
	Ingredients []string      `json:"ingredients" validate:"dive,required,excludesall=0x7C0x2C"`
	Extras      []ExtraDTO    `json:"extras" validate:"dive"`
}

func (d MenuItemRequestDTO) toDomain() domain.MenuItem {
	extras := make([]domain.Extra, 0, len(d.Extras))
	for _, e := range d.Extras {
		extras = append(extras, domain.Extra{Name: e.Name, Price: e.Price})
	}
	return domain.MenuItem{
		Name:        d.Name,
		Description: d.Description,
		Category:    d.Category,
		Price:       d.Price,
		ImageRef:    d.ImageRef,
		Available:   d.Available,
		Sizes:       d.Sizes,
		Ingredients: d.Ingredients,
		Extras:      extras,
	}
}

type DealRequestDTO struct {
	Title           string    `json:"title" validate:"required,max=120"`
	Description     string    `json:"description" validate:"max=2000"`
	DiscountPercent float64   `json:"discountPercent" validate:"gt=0,lte=100"`
	MenuItemIDs     []string  `json:"menuItemIds" validate:"dive,required"`
	Active          bool      `json:"active"`
	StartsAt        time.Time `json:"startsAt" validate:"required"`
	EndsAt          time.Time `json:"endsAt" validate:"required,gtfield=StartsAt"`
}

func (d DealRequestDTO) toDomain() domain.Deal {
	return domain.Deal{
		Title:           d.Title,
		Description:     d.Description,
		DiscountPercent: d.DiscountPercent,
		MenuItemIDs:     d.MenuItemIDs,
		Active:          d.Active,
		StartsAt:        d.StartsAt,
		EndsAt:          d.EndsAt,
	}
}

func (h *MenuHandler) ListMenu(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	items, err := h.menu.ListMenu(ctx, r.URL.Query().Get("category"))
	if err != nil {
		respondServiceError(w, r, h.opts.Logger, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

func (h *MenuHandler) GetMenuItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	item, err := h.menu.GetMenuItem(ctx, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, h.opts.Logger, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// ListActiveDeals is the public deal listing.
func (h *MenuHandler) ListActiveDeals(w http.ResponseWriter, r *http.Request) {
	h.listDeals(w, r, true)
}

func (h *MenuHandler) ListAllDeals(w http.ResponseWriter, r *http.Request) {
	h.listDeals(w, r, false)
}

func (h *MenuHandler) listDeals(w http.ResponseWriter, r *http.Request, activeOnly bool) {
	ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	deals, err := h.menu.ListDeals(ctx, activeOnly)
	if err != nil {
		respondServiceError(w, r, h.opts.Logger, err)
		return
	}
	respondJSON(w, http.StatusOK, deals)
}

func (h *MenuHandler) CreateMenuItem(w http.ResponseWriter, r *http.Request) {
	var req MenuItemRequestDTO
	if err := decodeJSON(w, r, &req, h.opts.MaxBodyBytes); err != nil {
		respondServiceError(w, r, h.opts.Logger, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	item, err := h.menu.CreateMenuItem(ctx, req.toDomain())
	if err != nil {
		respondServiceError(w, r, h.opts.Logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

func (h *MenuHandler) UpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	var req MenuItemRequestDTO
	if err := decodeJSON(w, r, &req, h.opts.MaxBodyBytes); err != nil {
		respondServiceError(w, r, h.opts.Logger, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	item, err := h.menu.UpdateMenuItem(ctx, chi.URLParam(r, "id"), req.toDomain())
	if err != nil {
		respondServiceError(w, r, h.opts.Logger, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (h *MenuHandler) DeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	if err := h.menu.DeleteMenuItem(ctx, chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, r, h.opts.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadImage accepts either a multipart form with an "image" file or the
// raw image as the request body.
func (h *MenuHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	body, contentType, err := h.readImage(w, r)
	if err != nil {
		respondServiceError(w, r, h.opts.Logger, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	item, err := h.menu.UploadMenuImage(ctx, chi.URLParam(r, "id"), contentType, body)
	if err != nil {
		respondServiceError(w, r, h.opts.Logger, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (h *MenuHandler) readImage(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxImageBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, "", imageReadError(err)
		}
		return body, mediaType, nil
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, "", imageReadError(err)
	}
	defer file.Close()

	body, err := io.ReadAll(file)
	if err != nil {
		return nil, "", imageReadError(err)
	}
	return body, header.Header.Get("Content-Type"), nil
}

func imageReadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &requestError{status: http.StatusRequestEntityTooLarge, code: "body_too_large", message: "image too large"}
	}
	return &requestError{status: http.StatusBadRequest, code: "invalid_request", message: "missing image upload"}
}

func (h *MenuHandler) CreateDeal(w http.ResponseWriter, r *http.Request) {
	var req DealRequestDTO
	if err := decodeJSON(w, r, &req, h.opts.MaxBodyBytes); err != nil {
		respondServiceError(w, r, h.opts.Logger, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	deal, err := h.menu.CreateDeal(ctx, req.toDomain())
	if err != nil {
		respondServiceError(w, r, h.opts.Logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, deal)
}

func (h *MenuHandler) UpdateDeal(w http.ResponseWriter, r *http.Request) {
	var req DealRequestDTO
	if err := decodeJSON(w, r, &req, h.opts.MaxBodyBytes); err != nil {
		respondServiceError(w, r, h.opts.Logger, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	deal, err := h.menu.UpdateDeal(ctx, chi.URLParam(r, "id"), req.toDomain())
	if err != nil {
		respondServiceError(w, r, h.opts.Logger, err)
		return
	}
	respondJSON(w, http.StatusOK, deal)
}

func (h *MenuHandler) DeleteDeal(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	if err := h.menu.DeleteDeal(ctx, chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, r, h.opts.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
