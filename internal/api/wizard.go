package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"promo-wizard/internal/draft"
	"promo-wizard/internal/loader"
	"promo-wizard/internal/promo"
	"promo-wizard/internal/wizard"
)

type draftView struct {
	Draft      promo.Draft  `json:"draft"`
	Completion []bool       `json:"completion"`
	Steps      []promo.Pill `json:"steps"`
}

func (h *Handler) GetDraft(w http.ResponseWriter, r *http.Request) {
	d := h.open(r).Draft()
	h.respond(w, r, http.StatusOK, draftView{
		Draft:      d,
		Completion: promo.StepsDone(d),
		Steps:      promo.Pills(d, 0, h.restrict),
	})
}

func (h *Handler) Abandon(w http.ResponseWriter, r *http.Request) {
	h.mutate(r, func(st *draft.Store) { h.svc.Abandon(r.Context(), st) })
	w.WriteHeader(http.StatusNoContent)
}

// Steps renders the progress bar with ?current= as the active step.
func (h *Handler) Steps(w http.ResponseWriter, r *http.Request) {
	current := 0
	if v := r.URL.Query().Get("current"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			badRequest(w, "current must be a non-negative step index")
			return
		}
		current = n
	}
	d := h.open(r).Draft()
	h.respond(w, r, http.StatusOK, map[string]any{"steps": promo.Pills(d, current, h.restrict)})
}

// Edit rehydrates the draft from an existing promo.
func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "promoID")
	res := loader.New(h.source, h.labels).Load(r.Context(), id)
	if res.Data != nil {
		h.mutate(r, func(st *draft.Store) { st.Set(r.Context(), *res.Data) })
	}
	h.respond(w, r, http.StatusOK, res)
}

// SubmitBasic accepts JSON, or multipart with the image file under "image".
func (h *Handler) SubmitBasic(w http.ResponseWriter, r *http.Request) {
	var f wizard.BasicForm
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		form, err := basicFromMultipart(w, r)
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		f = form
	} else if err := decode(w, r, &f); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	var (
		res wizard.Result
		err error
	)
	h.mutate(r, func(st *draft.Store) { res, err = h.svc.SubmitBasic(r.Context(), st, f) })
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, res)
}

func basicFromMultipart(w http.ResponseWriter, r *http.Request) (wizard.BasicForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(maxUploadBody); err != nil {
		return wizard.BasicForm{}, err
	}
	f := wizard.BasicForm{
		BusinessType:    promo.BusinessType(r.FormValue("businessType")),
		Name:            r.FormValue("name"),
		Description:     r.FormValue("description"),
		RuleDescription: r.FormValue("ruleDescription"),
		Image:           r.FormValue("image"),
	}
	file, hdr, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return f, nil
	case err != nil:
		return f, err
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return f, err
	}
	f.ImageFile = &wizard.ImageFile{Name: hdr.Filename, ContentType: hdr.Header.Get("Content-Type"), Data: data}
	return f, nil
}

// submit decodes a JSON form of type F and runs one wizard step with it.
func submit[F any](h *Handler, step func(*wizard.Service, context.Context, *draft.Store, F) (wizard.Result, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var f F
		if err := decode(w, r, &f); err != nil {
			badRequest(w, "malformed request body")
			return
		}
		var (
			res wizard.Result
			err error
		)
		h.mutate(r, func(st *draft.Store) { res, err = step(h.svc, r.Context(), st, f) })
		if err != nil {
			h.fail(w, r, err)
			return
		}
		h.respond(w, r, http.StatusOK, res)
	}
}

func (h *Handler) Finish(w http.ResponseWriter, r *http.Request) {
	var (
		res wizard.Result
		err error
	)
	h.mutate(r, func(st *draft.Store) { res, err = h.svc.Finish(r.Context(), st) })
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, res)
}

func (h *Handler) Countries(w http.ResponseWriter, r *http.Request) {
	list, err := h.options.Countries(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, map[string]any{"countries": list})
}

type audienceEditRequest struct {
	Row  promo.TargetAudience `json:"row"`
	Edit wizard.Edit          `json:"edit"`
}

// EditAudience applies one selector change with its cascading resets.
func (h *Handler) EditAudience(w http.ResponseWriter, r *http.Request) {
	var req audienceEditRequest
	if err := decode(w, r, &req); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	row, err := wizard.ApplyEdit(req.Row, req.Edit)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	h.respond(w, r, http.StatusOK, map[string]any{"row": row, "disabled": row.Disabled()})
}

type audienceOptionsRequest struct {
	Row      int                  `json:"row"`
	Audience promo.TargetAudience `json:"audience"`
}

type audienceOptionsResponse struct {
	Options wizard.RowOptions `json:"options"`
	Fresh   bool              `json:"fresh"`
}

// AudienceOptions reloads the city and agency choices for one row. A
// response superseded by a newer request for the same row reports fresh=false.
func (h *Handler) AudienceOptions(w http.ResponseWriter, r *http.Request) {
	var req audienceOptionsRequest
	if err := decode(w, r, &req); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	if req.Row < 0 || req.Row >= wizard.MaxAudienceRows {
		badRequest(w, fmt.Sprintf("row must be between 0 and %d", wizard.MaxAudienceRows-1))
		return
	}
	opts, fresh, err := h.options.Refresh(r.Context(), ownerFrom(r.Context()), req.Row, req.Audience)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, audienceOptionsResponse{Options: opts, Fresh: fresh})
}

// RewardStatuses lists the loyalty statuses the add-reward selector offers.
func (h *Handler) RewardStatuses(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rewards []promo.Reward `json:"rewards"`
	}
	if err := decode(w, r, &req); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	h.respond(w, r, http.StatusOK, map[string]any{"statuses": promo.AvailableStatuses(req.Rewards)})
}

// Activity records user activity; the session middleware already touched it.
func (h *Handler) Activity(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
