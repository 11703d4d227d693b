package webserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/agusx1211/scamsim/internal/buildinfo"
	"github.com/agusx1211/scamsim/internal/debug"
	"github.com/agusx1211/scamsim/internal/scenario"
)

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type personaResponse struct {
	scenario.Persona
	Scenarios []string `json:"scenarios"`
}

// scenarioSummary omits turn text and IOC values; those only reach a client
// through playback.
type scenarioSummary struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Category      string   `json:"category"`
	Description   string   `json:"description"`
	Persona       string   `json:"persona"`
	Turns         int      `json:"turns"`
	IOCs          int      `json:"iocs"`
	IOCCategories []string `json:"ioc_categories"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		debug.LogKV("webserver", "failed to encode json response", "status", status, "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func (srv *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: buildinfo.Current().Version})
}

func (srv *Server) handlePersonas(w http.ResponseWriter, r *http.Request) {
	personas := srv.Catalog().Personas()
	out := make([]personaResponse, 0, len(personas))
	for _, p := range personas {
		out = append(out, srv.personaResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (srv *Server) handlePersonaByID(w http.ResponseWriter, r *http.Request) {
	p, err := srv.Catalog().Persona(r.PathValue("id"))
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, srv.personaResponse(*p))
}

func (srv *Server) handleScenarios(w http.ResponseWriter, r *http.Request) {
	list := srv.Catalog().Scenarios()
	if persona := r.URL.Query().Get("persona"); persona != "" {
		list = srv.Catalog().ScenariosFor(persona)
	}
	out := make([]scenarioSummary, 0, len(list))
	for _, sc := range list {
		out = append(out, summarize(sc))
	}
	writeJSON(w, http.StatusOK, out)
}

func (srv *Server) handleScenarioByID(w http.ResponseWriter, r *http.Request) {
	sc, err := srv.Catalog().Scenario(r.PathValue("id"))
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summarize(sc))
}

func (srv *Server) personaResponse(p scenario.Persona) personaResponse {
	ids := []string{}
	for _, sc := range srv.Catalog().ScenariosFor(p.ID) {
		ids = append(ids, sc.ID)
	}
	return personaResponse{Persona: p, Scenarios: ids}
}

func summarize(sc *scenario.Scenario) scenarioSummary {
	cats := []string{}
	seen := map[string]bool{}
	for _, ioc := range sc.IOCs {
		if !seen[ioc.Category] {
			seen[ioc.Category] = true
			cats = append(cats, ioc.Category)
		}
	}
	return scenarioSummary{
		ID:            sc.ID,
		Title:         sc.Title,
		Category:      sc.Category,
		Description:   sc.Description,
		Persona:       sc.Persona,
		Turns:         len(sc.Turns),
		IOCs:          len(sc.IOCs),
		IOCCategories: cats,
	}
}

func writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, scenario.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
