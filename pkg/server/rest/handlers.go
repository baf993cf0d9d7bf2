package rest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/veloreach/veloreach/pkg/datastructure"
	"github.com/veloreach/veloreach/pkg/engine/accessibility"
	"github.com/veloreach/veloreach/pkg/server/rest/service"
	"github.com/veloreach/veloreach/pkg/snap"
	"github.com/veloreach/veloreach/pkg/util"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

type AccessibilityService interface {
	Accessibility(ctx context.Context, origins, destinations []datastructure.Coordinate,
		amenity string, weight datastructure.WeightKey, threshold float64,
		minSuitability string) (*accessibility.Result, []datastructure.Coordinate, []string, error)
	Summary(ctx context.Context) service.GraphSummary
}

type AccessibilityHandler struct {
	svc AccessibilityService
	m   *metrics
}

func AccessibilityRouter(r *chi.Mux, svc AccessibilityService, m *metrics) {
	handler := &AccessibilityHandler{svc, m}

	r.Group(func(r chi.Router) {
		r.Route("/api", func(r chi.Router) {
			r.Post("/accessibility", handler.Accessibility)
			r.Get("/graph/summary", handler.GraphSummary)
		})
	})
}

// Coord is a WGS84 coordinate in a request or response body. Range
// checks only: zero is a legitimate latitude and longitude, so the
// fields are not marked required.
type Coord struct {
	Lat float64 `json:"lat" validate:"lt=90,gt=-90"`
	Lon float64 `json:"lon" validate:"lt=180,gt=-180"`
}

// AccessibilityRequest is the body of POST /api/accessibility. Either
// Destinations or Amenity must be set; Amenity resolves destinations
// from the POI set.
type AccessibilityRequest struct {
	Origins        []Coord `json:"origins" validate:"required,min=1,dive"`
	Destinations   []Coord `json:"destinations" validate:"omitempty,dive"`
	Amenity        string  `json:"amenity"`
	CostType       string  `json:"cost_type" validate:"required,oneof=travel_time distance"`
	Threshold      float64 `json:"threshold" validate:"required,gt=0"`
	MinSuitability string  `json:"min_suitability" validate:"omitempty,oneof=low medium good"`
}

func (s *AccessibilityRequest) Bind(r *http.Request) error {
	if len(s.Origins) == 0 {
		return errors.New("invalid request")
	}
	if len(s.Destinations) == 0 && s.Amenity == "" {
		return errors.New("either destinations or amenity must be set")
	}
	return nil
}

// OriginAccessibility is one row of the result: the snapped origin,
// the encoded polyline of the edge it attached to, its per-destination
// costs (null when unreachable) and the count of destinations within
// the threshold.
type OriginAccessibility struct {
	Origin         Coord      `json:"origin"`
	SnappedTo      Coord      `json:"snapped_to"`
	EdgePath       string     `json:"edge_path"`
	Costs          []*float64 `json:"costs"`
	Reachable      []bool     `json:"reachable"`
	ReachableCount int        `json:"reachable_count"`
}

type AccessibilityResponse struct {
	CostType     string                `json:"cost_type"`
	Threshold    float64               `json:"threshold"`
	Origins      []OriginAccessibility `json:"origins"`
	Destinations []Coord               `json:"destinations"`
}

func RenderAccessibilityResponse(req *AccessibilityRequest, res *accessibility.Result,
	dests []datastructure.Coordinate, edgePaths []string) *AccessibilityResponse {

	origins := make([]OriginAccessibility, 0, len(res.Costs))
	for i, row := range res.Costs {
		costs := make([]*float64, len(row))
		for j, c := range row {
			if math.IsInf(c, 1) {
				continue
			}
			rounded := util.RoundFloat(c, 3)
			costs[j] = &rounded
		}
		edgePath := ""
		if i < len(edgePaths) {
			edgePath = edgePaths[i]
		}
		origins = append(origins, OriginAccessibility{
			Origin:         req.Origins[i],
			SnappedTo:      Coord{Lat: res.OriginSnaps[i].Point.Lat, Lon: res.OriginSnaps[i].Point.Lon},
			EdgePath:       edgePath,
			Costs:          costs,
			Reachable:      res.Reachable[i],
			ReachableCount: res.ReachableCount[i],
		})
	}

	destsResp := make([]Coord, 0, len(dests))
	for _, d := range dests {
		destsResp = append(destsResp, Coord{Lat: d.Lat, Lon: d.Lon})
	}

	return &AccessibilityResponse{
		CostType:     req.CostType,
		Threshold:    req.Threshold,
		Origins:      origins,
		Destinations: destsResp,
	}
}

// Accessibility counts, per origin, the destinations reachable within
// the requested cost threshold.
func (h *AccessibilityHandler) Accessibility(w http.ResponseWriter, r *http.Request) {
	data := &AccessibilityRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	validate := validator.New()
	if err := validate.Struct(*data); err != nil {
		english := en.New()
		uni := ut.New(english, english)
		trans, _ := uni.GetTranslator("en")
		_ = enTranslations.RegisterDefaultTranslations(validate, trans)
		vv := translateError(err, trans)
		render.Render(w, r, ErrValidation(err, vv))
		return
	}

	origins := make([]datastructure.Coordinate, 0, len(data.Origins))
	for _, c := range data.Origins {
		origins = append(origins, datastructure.Coordinate{Lat: c.Lat, Lon: c.Lon})
	}
	dests := make([]datastructure.Coordinate, 0, len(data.Destinations))
	for _, c := range data.Destinations {
		dests = append(dests, datastructure.Coordinate{Lat: c.Lat, Lon: c.Lon})
	}

	res, resolvedDests, edgePaths, err := h.svc.Accessibility(r.Context(), origins, dests, data.Amenity,
		datastructure.WeightKey(data.CostType), data.Threshold, data.MinSuitability)
	if err != nil {
		switch {
		case errors.Is(err, snap.ErrSnapTooFar),
			errors.Is(err, service.ErrNoDestinations),
			errors.Is(err, datastructure.ErrInvalidWeightKey):
			render.Render(w, r, ErrInvalidRequest(err))
		default:
			render.Render(w, r, ErrInternalServerErrorRend(errors.New("internal server error")))
		}
		return
	}

	if h.m != nil {
		h.m.accessibilityQueryCount.WithLabelValues(data.CostType).Inc()
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, RenderAccessibilityResponse(data, res, resolvedDests, edgePaths))
}

// GraphSummaryResponse describes the loaded street graph.
type GraphSummaryResponse struct {
	Nodes           int                `json:"nodes"`
	Edges           int                `json:"edges"`
	POIs            int                `json:"pois"`
	ComponentCount  int                `json:"component_count"`
	LargestFraction float64            `json:"largest_fraction"`
	TotalKm         float64            `json:"total_km"`
	KmBySuitability map[string]float64 `json:"km_by_suitability"`
}

func (h *AccessibilityHandler) GraphSummary(w http.ResponseWriter, r *http.Request) {
	summary := h.svc.Summary(r.Context())

	render.Status(r, http.StatusOK)
	render.JSON(w, r, &GraphSummaryResponse{
		Nodes:           summary.Nodes,
		Edges:           summary.Edges,
		POIs:            summary.POIs,
		ComponentCount:  summary.ComponentCount,
		LargestFraction: util.RoundFloat(summary.LargestFraction, 4),
		TotalKm:         util.RoundFloat(summary.TotalKm, 3),
		KmBySuitability: summary.KmBySuitability,
	})
}

func ErrInvalidRequest(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 400,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
	}
}

type ErrResponse struct {
	Err            error `json:"-"` // low-level runtime error
	HTTPStatusCode int   `json:"-"` // http response status code

	StatusText    string   `json:"status"`          // user-level status message
	AppCode       int64    `json:"code,omitempty"`  // application-specific error code
	ErrorText     string   `json:"error,omitempty"` // application-level error message, for debugging
	ErrValidation []string `json:"validation,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func translateError(err error, trans ut.Translator) (errs []error) {
	if err == nil {
		return nil
	}
	validatorErrs := err.(validator.ValidationErrors)
	for _, e := range validatorErrs {
		translatedErr := fmt.Errorf(e.Translate(trans))
		errs = append(errs, translatedErr)
	}
	return errs
}

func ErrValidation(err error, errV []error) render.Renderer {
	vv := []string{}
	for _, v := range errV {
		vv = append(vv, v.Error())
	}
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 400,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
		ErrValidation:  vv,
	}
}

func ErrInternalServerErrorRend(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 500,
		StatusText:     "Internal server error.",
		ErrorText:      err.Error(),
	}
}
