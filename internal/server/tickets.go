package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	ticketdomain "github.com/smallbiznis/innkeeper/internal/ticket/domain"
)

func (s *Server) OpenTicket(c *gin.Context) {
	var req ticketdomain.OpenTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	item, err := s.ticketSvc.Open(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": item})
}

func (s *Server) ListOpenTickets(c *gin.Context) {
	var req ticketdomain.ListOpenRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	items, err := s.ticketSvc.ListOpen(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) GetTicket(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	item, err := s.ticketSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) AddTicketLine(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req ticketdomain.AddLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	line, err := s.ticketSvc.AddLine(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": line})
}

type updateLineRequest struct {
	Quantity int `json:"quantity"`
}

func (s *Server) UpdateTicketLine(c *gin.Context) {
	ticketID, ok := pathID(c, "id")
	if !ok {
		return
	}
	lineID, ok := pathID(c, "lineId")
	if !ok {
		return
	}

	var req updateLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	line, err := s.ticketSvc.UpdateLineQuantity(c.Request.Context(), ticketID, lineID, req.Quantity)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": line})
}

func (s *Server) RemoveTicketLine(c *gin.Context) {
	ticketID, ok := pathID(c, "id")
	if !ok {
		return
	}
	lineID, ok := pathID(c, "lineId")
	if !ok {
		return
	}

	if err := s.ticketSvc.RemoveLine(c.Request.Context(), ticketID, lineID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) SettleTicket(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req ticketdomain.SettleTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	invoice, err := s.ticketSvc.LockAndSettle(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": invoice})
}

// AbandonTicket deletes an open ticket. A ticket with lines is only dropped
// when the caller passes discard=true.
func (s *Server) AbandonTicket(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	discard, err := parseOptionalBool(c.Query("discard"))
	if err != nil {
		AbortWithError(c, newValidationError("discard", "invalid_discard", "invalid discard"))
		return
	}

	if err := s.ticketSvc.Abandon(c.Request.Context(), id, discard != nil && *discard); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) MarkTicketPrinted(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	item, err := s.ticketSvc.MarkPrinted(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) RenderTicketReceipt(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	doc, err := s.ticketSvc.RenderReceipt(c.Request.Context(), id, strings.TrimSpace(c.Query("format")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	writeDocument(c, doc)
}
