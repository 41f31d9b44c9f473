package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/CTAG07/markov-chains/pkg/corpus"
	"github.com/CTAG07/markov-chains/pkg/markov"
	"github.com/CTAG07/markov-chains/pkg/store"
)

// maxDocumentBytes limits the size of an uploaded chain document.
const maxDocumentBytes = 64 << 20

// ChainAPI holds the dependencies for the chain API handlers.
type ChainAPI struct {
	store     *store.Store
	tokenizer *corpus.Tokenizer
	config    *Config
	logger    *slog.Logger
}

// ChainDetail is the response body for a single chain.
type ChainDetail struct {
	store.ChainInfo
	Stats markov.Stats `json:"stats"`
}

// WalkResponse is the response body for generated walks. Text is set when
// the walks were requested as text.
type WalkResponse struct {
	Walks [][]markov.Value `json:"walks,omitempty"`
	Text  []string         `json:"text,omitempty"`
}

// NewChainAPI creates a new instance of the ChainAPI.
func NewChainAPI(s *store.Store, config *Config, logger *slog.Logger) *ChainAPI {
	return &ChainAPI{
		store:     s,
		tokenizer: corpus.NewTokenizer(),
		config:    config,
		logger:    logger,
	}
}

// RegisterRoutes sets up the routing for all /api/chains endpoints.
func (c *ChainAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/chains", c.handleList)
	mux.HandleFunc("GET /api/chains/{name}", c.handleGet)
	mux.HandleFunc("POST /api/chains/{name}", c.handleImport)
	mux.HandleFunc("DELETE /api/chains/{name}", c.handleRemove)
	mux.HandleFunc("GET /api/chains/{name}/document", c.handleDocument)
	mux.HandleFunc("GET /api/chains/{name}/walk", c.handleWalk)
}

// handleList returns the metadata of every stored chain.
func (c *ChainAPI) handleList(w http.ResponseWriter, r *http.Request) {
	infos, err := c.store.List(r.Context())
	if err != nil {
		c.logger.Error("Failed to list chains", "error", err)
		c.respondWithError(w, http.StatusInternalServerError, "Failed to retrieve chains")
		return
	}
	c.respondWithJSON(w, http.StatusOK, infos)
}

// handleGet returns the metadata and statistics of one chain.
func (c *ChainAPI) handleGet(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	info, err := c.store.Info(r.Context(), name)
	if err != nil {
		c.respondWithStoreError(w, name, err)
		return
	}
	chain, err := c.store.Load(r.Context(), name)
	if err != nil {
		c.respondWithStoreError(w, name, err)
		return
	}
	c.respondWithJSON(w, http.StatusOK, ChainDetail{ChainInfo: info, Stats: chain.Stats()})
}

// handleImport stores the chain document in the request body under the name
// in the path, replacing any chain already stored there.
func (c *ChainAPI) handleImport(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	chain, err := markov.Import(http.MaxBytesReader(w, r.Body, maxDocumentBytes), markov.WithLogger(c.logger))
	if err != nil {
		c.respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid chain document: %v", err))
		return
	}
	if err = c.store.Save(r.Context(), name, chain); err != nil {
		c.logger.Error("Failed to save chain", "chain_name", name, "error", err)
		c.respondWithError(w, http.StatusInternalServerError, "Failed to save chain")
		return
	}

	info, err := c.store.Info(r.Context(), name)
	if err != nil {
		c.respondWithStoreError(w, name, err)
		return
	}
	c.respondWithJSON(w, http.StatusCreated, info)
}

// handleRemove deletes one chain.
func (c *ChainAPI) handleRemove(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := c.store.Remove(r.Context(), name); err != nil {
		c.respondWithStoreError(w, name, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDocument returns the serialized document of one chain.
func (c *ChainAPI) handleDocument(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	chain, err := c.store.Load(r.Context(), name)
	if err != nil {
		c.respondWithStoreError(w, name, err)
		return
	}
	doc, err := chain.MarshalJSON()
	if err != nil {
		c.logger.Error("Failed to serialize chain", "chain_name", name, "error", err)
		c.respondWithError(w, http.StatusInternalServerError, "Failed to serialize chain")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// handleWalk generates walks from one chain. The count query parameter sets
// the number of walks, max_length caps each walk below the configured ceiling
// and format=text renders the walks back to text.
func (c *ChainAPI) handleWalk(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	query := r.URL.Query()

	count, err := queryInt(query.Get("count"), 1)
	if err != nil || count < 1 || count > c.config.MaxWalkCount {
		c.respondWithError(w, http.StatusBadRequest, fmt.Sprintf("count must be between 1 and %d", c.config.MaxWalkCount))
		return
	}
	// Walks are always bounded here: a stored chain may cycle without
	// reaching End.
	maxLength, err := queryInt(query.Get("max_length"), c.config.MaxLength)
	if err != nil || maxLength < 1 || maxLength > c.config.MaxLength {
		c.respondWithError(w, http.StatusBadRequest, fmt.Sprintf("max_length must be between 1 and %d", c.config.MaxLength))
		return
	}
	asText := query.Get("format") == formatText

	chain, err := c.store.Load(r.Context(), name)
	if err != nil {
		c.respondWithStoreError(w, name, err)
		return
	}

	var resp WalkResponse
	for range count {
		walk := chain.Walk(markov.WithMaxLength(maxLength))
		if asText {
			resp.Text = append(resp.Text, c.tokenizer.Join(walk))
		} else {
			resp.Walks = append(resp.Walks, walk)
		}
	}
	c.respondWithJSON(w, http.StatusOK, resp)
}

func (c *ChainAPI) respondWithStoreError(w http.ResponseWriter, name string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.respondWithError(w, http.StatusNotFound, fmt.Sprintf("Chain '%s' not found", name))
		return
	}
	c.logger.Error("Chain store request failed", "chain_name", name, "error", err)
	c.respondWithError(w, http.StatusInternalServerError, "Failed to access chain")
}

func (c *ChainAPI) respondWithError(w http.ResponseWriter, code int, message string) {
	c.respondWithJSON(w, code, map[string]string{"error": message})
}

func (c *ChainAPI) respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		err := json.NewEncoder(w).Encode(payload)
		if err != nil {
			c.logger.Error("Failed to encode JSON response", "status", code, "error", err)
		}
	}
}

// queryInt parses an integer query parameter, returning def when it is empty.
func queryInt(value string, def int) (int, error) {
	if value == "" {
		return def, nil
	}
	return strconv.Atoi(value)
}
