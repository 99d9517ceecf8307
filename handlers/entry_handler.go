package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/artcontest/judging-system/services"
)

const maxEntryFormSize = 32 << 20

type EntryHandler struct {
	entryService services.EntryService
}

func NewEntryHandler(entryService services.EntryService) *EntryHandler {
	return &EntryHandler{entryService: entryService}
}

// Create accepts a multipart form with the participant fields plus a
// required front_image part and an optional back_image part.
func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxEntryFormSize); err != nil {
		badRequestResponse(w, r, errors.New("request must be multipart form data"))
		return
	}

	age, err := strconv.Atoi(r.FormValue("participant_age"))
	if err != nil {
		badRequestResponse(w, r, errors.New("participant_age must be a number"))
		return
	}
	ageCategoryID, err := strconv.Atoi(r.FormValue("age_category_id"))
	if err != nil {
		badRequestResponse(w, r, errors.New("age_category_id must be a number"))
		return
	}

	input := services.CreateEntryInput{
		AgeCategoryID:   ageCategoryID,
		ParticipantName: r.FormValue("participant_name"),
		ParticipantAge:  age,
	}
	if statement := r.FormValue("artist_statement"); statement != "" {
		input.ArtistStatement = &statement
	}

	front, frontHeader, err := r.FormFile("front_image")
	if err == nil {
		defer front.Close()
		input.FrontImage = imageUploadFrom(front, frontHeader)
	} else if !errors.Is(err, http.ErrMissingFile) {
		badRequestResponse(w, r, errors.New("front_image could not be read"))
		return
	}

	back, backHeader, err := r.FormFile("back_image")
	if err == nil {
		defer back.Close()
		input.BackImage = imageUploadFrom(back, backHeader)
	} else if !errors.Is(err, http.ErrMissingFile) {
		badRequestResponse(w, r, errors.New("back_image could not be read"))
		return
	}

	entry, err := h.entryService.Create(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"entry": entry}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "entryID"))
	if err != nil || id <= 0 {
		badRequestResponse(w, r, errors.New("invalid entry id"))
		return
	}

	entry, err := h.entryService.GetByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"entry": entry}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.entryService.ListActiveContest(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"entries": entries}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "entryID"))
	if err != nil || id <= 0 {
		badRequestResponse(w, r, errors.New("invalid entry id"))
		return
	}

	if err := h.entryService.Delete(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"success": true}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *EntryHandler) ListContests(w http.ResponseWriter, r *http.Request) {
	contests, err := h.entryService.ListContests(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"contests": contests}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *EntryHandler) ListAgeCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.entryService.ListAgeCategories(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"age_categories": categories}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func imageUploadFrom(file multipart.File, header *multipart.FileHeader) *services.ImageUpload {
	return &services.ImageUpload{
		Reader:      file,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	}
}
