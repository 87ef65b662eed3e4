package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/semweave/semweave/internal/application/service/shacl"
	"github.com/semweave/semweave/internal/errors"
	"github.com/semweave/semweave/internal/logger"
	"github.com/semweave/semweave/internal/ontology"
	"github.com/semweave/semweave/internal/rdf"
	"github.com/semweave/semweave/internal/types"
)

// OntologyHandler manages stored ontologies.
type OntologyHandler struct {
	storage *ontology.Storage
	shacl   *shacl.Service
}

// NewOntologyHandler creates the handler.
func NewOntologyHandler(storage *ontology.Storage, shaclService *shacl.Service) *OntologyHandler {
	return &OntologyHandler{storage: storage, shacl: shaclService}
}

// UploadOntology stores a Turtle ontology document. The body is the raw
// Turtle; namespace and name come from the path. The document is parsed
// before storing so malformed ontologies are rejected up front.
func (h *OntologyHandler) UploadOntology(c *gin.Context) {
	ctx := c.Request.Context()
	namespace := c.Param("namespace")
	name := c.Param("name")

	turtle, err := io.ReadAll(c.Request.Body)
	if err != nil || len(turtle) == 0 {
		c.Error(errors.NewValidationError("empty ontology document"))
		return
	}

	// Reject malformed or cyclic ontologies at upload time
	if _, err := ontology.Load(ctx, string(turtle)); err != nil {
		logger.Warnf(ctx, "rejected ontology upload %s/%s: %v", namespace, name, err)
		c.Error(errors.NewOntologyMalformedError(err.Error()))
		return
	}

	ref, err := h.storage.Save(ctx, namespace, name, turtle)
	if err != nil {
		c.Error(errors.NewInternalServerError(err.Error()))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": ref})
}

// GetOntology returns the snapshot summary of a stored ontology.
func (h *OntologyHandler) GetOntology(c *gin.Context) {
	ctx := c.Request.Context()
	ref := types.OntologyRef{
		Namespace:   c.Param("namespace"),
		Name:        c.Param("name"),
		ContentHash: c.Param("hash"),
	}

	loaded, err := h.storage.Load(ctx, ref)
	if err != nil {
		c.Error(errors.NewOntologyNotFoundError(err.Error()))
		return
	}
	snapshot := loaded.Snapshot()
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{
		"ref":        ref,
		"classes":    len(snapshot.Classes),
		"properties": len(snapshot.Properties),
		"metadata":   snapshot.Metadata,
	}})
}

// GetOntologyShapes derives the SHACL shapes of a stored ontology and
// returns them as Turtle.
func (h *OntologyHandler) GetOntologyShapes(c *gin.Context) {
	ctx := c.Request.Context()
	ref := types.OntologyRef{
		Namespace:   c.Param("namespace"),
		Name:        c.Param("name"),
		ContentHash: c.Param("hash"),
	}

	loaded, err := h.storage.Load(ctx, ref)
	if err != nil {
		c.Error(errors.NewOntologyNotFoundError(err.Error()))
		return
	}
	shapes, err := h.shacl.GenerateShapesFromOntology(ctx, loaded.QuadStore(ctx))
	if err != nil {
		c.Error(errors.NewInternalServerError(err.Error()))
		return
	}
	quads, err := shapes.All(ctx)
	if err != nil {
		c.Error(errors.NewInternalServerError(err.Error()))
		return
	}
	turtle := rdf.SerializeTurtle(quads, map[string]string{
		"sh":  rdf.SHNS,
		"xsd": rdf.XSDNS,
	})
	c.Data(http.StatusOK, "text/turtle; charset=utf-8", []byte(turtle))
}
