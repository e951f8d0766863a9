package web

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/raicesdev/bienesraices/internal/errorz"
	"github.com/raicesdev/bienesraices/internal/property"
)

// maxImageBytes limits property image uploads.
const maxImageBytes = 10 << 20

type propertyForm struct {
	Title       string  `schema:"titulo"`
	Description string  `schema:"descripcion"`
	CategoryID  int     `schema:"categoria"`
	PriceID     int     `schema:"precio"`
	Rooms       int     `schema:"habitaciones"`
	Parking     int     `schema:"estacionamiento"`
	Bathrooms   int     `schema:"wc"`
	Street      string  `schema:"calle"`
	Lat         float64 `schema:"lat"`
	Lng         float64 `schema:"lng"`
}

type messageForm struct {
	Body string `schema:"mensaje"`
}

// propertyView is a property enriched with catalog names for rendering.
type propertyView struct {
	property.Property
	CategoryName string
	PriceName    string
	Messages     int
}

func propertyListView(properties []property.Property) []propertyView {
	out := make([]propertyView, 0, len(properties))
	for _, p := range properties {
		out = append(out, propertyView{
			Property:     p,
			CategoryName: property.CategoryName(p.CategoryID),
			PriceName:    property.PriceRangeName(p.PriceID),
		})
	}
	return out
}

// propertyFormView is the data for the create and edit forms.
type propertyFormView struct {
	Categories  []property.Category
	PriceRanges []property.PriceRange
}

func (f propertyForm) listing() property.Listing {
	return property.Listing{
		Title:       f.Title,
		Description: f.Description,
		CategoryID:  f.CategoryID,
		PriceID:     f.PriceID,
		Rooms:       f.Rooms,
		Parking:     f.Parking,
		Bathrooms:   f.Bathrooms,
		Street:      f.Street,
		Lat:         f.Lat,
		Lng:         f.Lng,
	}
}

func (f propertyForm) checks() []check {
	return []check{
		{"titulo", notEmpty(f.Title), "El Titulo del Anuncio es Obligatorio"},
		{"descripcion", notEmpty(f.Description), "La Descripción no puede ir vacía"},
		{"descripcion", maxLen(f.Description, 200), "La Descripción es muy larga"},
		{"categoria", func() bool { return property.ValidCategory(f.CategoryID) }, "Selecciona una Categoría"},
		{"precio", func() bool { return property.ValidPriceRange(f.PriceID) }, "Selecciona un rango de Precios"},
		{"habitaciones", positive(f.Rooms), "Selecciona la cantidad de Habitaciones"},
		{"estacionamiento", positive(f.Parking), "Selecciona la cantidad de Estacionamientos"},
		{"wc", positive(f.Bathrooms), "Selecciona la cantidad de Baños"},
		{"lat", nonZero(f.Lat), "Ubica la Propiedad en el Mapa"},
	}
}

func (s *Server) myProperties(w http.ResponseWriter, r *http.Request) {
	claims := s.claims(r)

	number, _ := strconv.Atoi(r.URL.Query().Get("pagina"))
	page, err := s.deps.Properties.OwnerPage(r.Context(), claims.AccountID, number)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	counts, err := s.deps.Properties.MessageCounts(r.Context(), page.Properties)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	views := propertyListView(page.Properties)
	for i := range views {
		views[i].Messages = counts[views[i].ID]
	}

	data := s.newViewData(r, "Mis Propiedades")
	data.View = struct {
		Properties []propertyView
		Page       property.Page
	}{
		Properties: views,
		Page:       page,
	}
	s.writeView(w, r, "mis-propiedades", data)
}

func (s *Server) createPropertyForm(w http.ResponseWriter, r *http.Request) {
	data := s.newViewData(r, "Crear Propiedad")
	data.Form = propertyForm{}
	data.View = propertyFormView{
		Categories:  property.Categories(),
		PriceRanges: property.PriceRanges(),
	}
	s.writeView(w, r, "propiedad-form", data)
}

func (s *Server) createProperty(w http.ResponseWriter, r *http.Request) {
	var form propertyForm
	if err := s.decodeForm(r, &form); err != nil {
		s.handleError(w, r, err)
		return
	}

	if errs := runChecks(form.checks()); len(errs) > 0 {
		data := s.newViewData(r, "Crear Propiedad")
		data.Errors = errs
		data.Form = form
		data.View = propertyFormView{
			Categories:  property.Categories(),
			PriceRanges: property.PriceRanges(),
		}
		s.writeView(w, r, "propiedad-form", data)
		return
	}

	claims := s.claims(r)
	created, err := s.deps.Properties.Create(r.Context(), claims.AccountID, form.listing())
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/propiedades/agregar-imagen/%s", created.ID), http.StatusFound)
}

func (s *Server) editPropertyForm(w http.ResponseWriter, r *http.Request) {
	claims := s.claims(r)

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	p, err := s.deps.Properties.View(r.Context(), id, &claims.AccountID)
	if err != nil || p.OwnerID != claims.AccountID {
		s.handleError(w, r, fmt.Errorf("not the owner: %w", errorz.ErrNotFound))
		return
	}

	data := s.newViewData(r, "Editar Propiedad")
	data.Form = propertyForm{
		Title:       p.Title,
		Description: p.Description,
		CategoryID:  p.CategoryID,
		PriceID:     p.PriceID,
		Rooms:       p.Rooms,
		Parking:     p.Parking,
		Bathrooms:   p.Bathrooms,
		Street:      p.Street,
		Lat:         p.Lat,
		Lng:         p.Lng,
	}
	data.View = propertyFormView{
		Categories:  property.Categories(),
		PriceRanges: property.PriceRanges(),
	}
	s.writeView(w, r, "propiedad-form", data)
}

func (s *Server) editProperty(w http.ResponseWriter, r *http.Request) {
	claims := s.claims(r)

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	var form propertyForm
	if err := s.decodeForm(r, &form); err != nil {
		s.handleError(w, r, err)
		return
	}

	if errs := runChecks(form.checks()); len(errs) > 0 {
		data := s.newViewData(r, "Editar Propiedad")
		data.Errors = errs
		data.Form = form
		data.View = propertyFormView{
			Categories:  property.Categories(),
			PriceRanges: property.PriceRanges(),
		}
		s.writeView(w, r, "propiedad-form", data)
		return
	}

	err = s.deps.Properties.Update(r.Context(), claims.AccountID, id, form.listing())
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	http.Redirect(w, r, "/mis-propiedades", http.StatusFound)
}

func (s *Server) deleteProperty(w http.ResponseWriter, r *http.Request) {
	claims := s.claims(r)

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	err = s.deps.Properties.Delete(r.Context(), claims.AccountID, id)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	http.Redirect(w, r, "/mis-propiedades", http.StatusFound)
}

func (s *Server) addImageForm(w http.ResponseWriter, r *http.Request) {
	claims := s.claims(r)

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	p, err := s.deps.Properties.View(r.Context(), id, &claims.AccountID)
	if err != nil || p.OwnerID != claims.AccountID {
		s.handleError(w, r, fmt.Errorf("not the owner: %w", errorz.ErrNotFound))
		return
	}

	data := s.newViewData(r, fmt.Sprintf("Agregar Imagen: %s", p.Title))
	data.View = propertyView{Property: p}
	s.writeView(w, r, "agregar-imagen", data)
}

func (s *Server) addImage(w http.ResponseWriter, r *http.Request) {
	claims := s.claims(r)

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	// Settle ownership before anything touches the uploads dir.
	p, err := s.deps.Properties.View(r.Context(), id, &claims.AccountID)
	if err != nil || p.OwnerID != claims.AccountID {
		s.handleError(w, r, fmt.Errorf("not the owner: %w", errorz.ErrNotFound))
		return
	}

	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		s.handleError(w, r, err)
		return
	}

	file, header, err := r.FormFile("imagen")
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	defer file.Close()

	filename, err := s.storeImage(file, header.Filename)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	err = s.deps.Properties.SetImage(r.Context(), claims.AccountID, id, filename)
	if err != nil {
		// Don't leave an orphan file behind.
		if rmErr := os.Remove(filepath.Join(s.deps.UploadsDir, filename)); rmErr != nil {
			s.deps.Logger.Error("failed to remove orphaned image", "filename", filename, "error", rmErr)
		}
		s.handleError(w, r, err)
		return
	}

	http.Redirect(w, r, "/mis-propiedades", http.StatusFound)
}

// storeImage writes an uploaded image to the uploads directory under a
// fresh name and returns that name.
func (s *Server) storeImage(src io.Reader, original string) (string, error) {
	ext := strings.ToLower(filepath.Ext(original))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
	default:
		return "", fmt.Errorf("unsupported image type %q", ext)
	}

	filename := uuid.New().String() + ext

	dst, err := os.Create(filepath.Join(s.deps.UploadsDir, filename))
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, io.LimitReader(src, maxImageBytes)); err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}

	return filename, nil
}

func (s *Server) toggleState(w http.ResponseWriter, r *http.Request) {
	claims := s.claims(r)

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	_, err = s.deps.Properties.TogglePublished(r.Context(), claims.AccountID, id)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	http.Redirect(w, r, "/mis-propiedades", http.StatusFound)
}

func (s *Server) showProperty(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	var viewerID *uuid.UUID
	if claims, ok := claimsFromCtx(r.Context()); ok {
		viewerID = &claims.AccountID
	}

	p, err := s.deps.Properties.View(r.Context(), id, viewerID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	data := s.newViewData(r, p.Title)
	data.Form = messageForm{}
	data.View = struct {
		Property propertyView
		IsOwner  bool
	}{
		Property: propertyView{
			Property:     p,
			CategoryName: property.CategoryName(p.CategoryID),
			PriceName:    property.PriceRangeName(p.PriceID),
		},
		IsOwner: viewerID != nil && *viewerID == p.OwnerID,
	}
	s.writeView(w, r, "propiedad", data)
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	claims := s.claims(r)

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	var form messageForm
	if err := s.decodeForm(r, &form); err != nil {
		s.handleError(w, r, err)
		return
	}

	errs := runChecks([]check{
		{"mensaje", minLen(form.Body, 10), "El Mensaje no puede ir vacío o es muy corto"},
	})
	if len(errs) > 0 {
		p, err := s.deps.Properties.View(r.Context(), id, &claims.AccountID)
		if err != nil {
			s.handleError(w, r, err)
			return
		}

		data := s.newViewData(r, p.Title)
		data.Errors = errs
		data.Form = form
		data.View = struct {
			Property propertyView
			IsOwner  bool
		}{
			Property: propertyView{
				Property:     p,
				CategoryName: property.CategoryName(p.CategoryID),
				PriceName:    property.PriceRangeName(p.PriceID),
			},
			IsOwner: p.OwnerID == claims.AccountID,
		}
		s.writeView(w, r, "propiedad", data)
		return
	}

	err = s.deps.Properties.SendMessage(r.Context(), id, claims.AccountID, form.Body)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	data := s.newViewData(r, "Mensaje Enviado Correctamente")
	data.View = messageView{
		Message: "El mensaje se envió correctamente",
	}
	s.writeView(w, r, "mensaje", data)
}

func (s *Server) messages(w http.ResponseWriter, r *http.Request) {
	claims := s.claims(r)

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	messages, err := s.deps.Properties.Messages(r.Context(), claims.AccountID, id)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	data := s.newViewData(r, "Mensajes")
	data.View = struct {
		Messages []property.Message
	}{
		Messages: messages,
	}
	s.writeView(w, r, "mensajes", data)
}
