package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *handlers) listCredentials(c *gin.Context) {
	p, ok := principal(c, h.logger)
	if !ok {
		return
	}

	list, err := h.deps.Credentials.ListByNamespace(c.Request.Context(), p.UserID, c.Param("namespaceZrn"))
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}

	out := make([]credentialResponse, 0, len(list))
	for _, cred := range list {
		out = append(out, toCredentialResponse(cred))
	}
	respond(c, http.StatusOK, "Credentials listed successfully.", out)
}

func (h *handlers) getCredential(c *gin.Context) {
	p, ok := principal(c, h.logger)
	if !ok {
		return
	}

	cred, err := h.deps.Credentials.Get(c.Request.Context(), p.UserID, c.Param("zrn"))
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Credential retrieved successfully.", toCredentialResponse(cred))
}

func (h *handlers) createCredential(c *gin.Context) {
	p, ok := principal(c, h.logger)
	if !ok {
		return
	}
	var req credentialRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	cred, err := h.deps.Credentials.Create(c.Request.Context(), p.UserID, req.input())
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Credential created successfully.", toCredentialResponse(cred))
}

func (h *handlers) updateCredential(c *gin.Context) {
	p, ok := principal(c, h.logger)
	if !ok {
		return
	}
	var req credentialRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	cred, err := h.deps.Credentials.Update(c.Request.Context(), p.UserID, c.Param("zrn"), req.input())
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Credential updated successfully.", toCredentialResponse(cred))
}

func (h *handlers) deleteCredential(c *gin.Context) {
	p, ok := principal(c, h.logger)
	if !ok {
		return
	}

	if err := h.deps.Credentials.Delete(c.Request.Context(), p.UserID, c.Param("zrn")); err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Credential deleted successfully.", nil)
}

func (h *handlers) listCredentialTypes(c *gin.Context) {
	list, err := h.deps.CredentialTypes.List(c.Request.Context())
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}

	out := make([]*credentialTypeResponse, 0, len(list))
	for _, ct := range list {
		out = append(out, toCredentialTypeResponse(ct))
	}
	respond(c, http.StatusOK, "Credential types retrieved successfully.", out)
}

func (h *handlers) getCredentialType(c *gin.Context) {
	ct, err := h.deps.CredentialTypes.Get(c.Request.Context(), c.Param("zrn"))
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Credential type retrieved successfully.", toCredentialTypeResponse(ct))
}
