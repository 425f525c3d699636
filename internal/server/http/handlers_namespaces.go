package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *handlers) listNamespaces(c *gin.Context) {
	p, ok := principal(c, h.logger)
	if !ok {
		return
	}

	list, err := h.deps.Namespaces.List(c.Request.Context(), p.UserID)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}

	out := make([]*namespaceResponse, 0, len(list))
	for _, n := range list {
		out = append(out, toNamespaceResponse(n))
	}
	respond(c, http.StatusOK, "Namespaces retrieved successfully.", out)
}

func (h *handlers) getNamespace(c *gin.Context) {
	p, ok := principal(c, h.logger)
	if !ok {
		return
	}

	n, err := h.deps.Namespaces.Get(c.Request.Context(), p.UserID, c.Param("zrn"))
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Namespace retrieved successfully.", toNamespaceResponse(n))
}

func (h *handlers) createNamespace(c *gin.Context) {
	p, ok := principal(c, h.logger)
	if !ok {
		return
	}
	var req namespaceRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	n, err := h.deps.Namespaces.Create(c.Request.Context(), p.UserID, req.input())
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Namespace created successfully.", toNamespaceResponse(n))
}

func (h *handlers) updateNamespace(c *gin.Context) {
	p, ok := principal(c, h.logger)
	if !ok {
		return
	}
	var req namespaceRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	n, err := h.deps.Namespaces.Update(c.Request.Context(), p.UserID, c.Param("zrn"), req.input())
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Namespace updated successfully.", toNamespaceResponse(n))
}

func (h *handlers) deleteNamespace(c *gin.Context) {
	p, ok := principal(c, h.logger)
	if !ok {
		return
	}

	if err := h.deps.Namespaces.Delete(c.Request.Context(), p.UserID, c.Param("zrn")); err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Namespace deleted successfully.", nil)
}
