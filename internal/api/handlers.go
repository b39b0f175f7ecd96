package api

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"tefi/server/internal/database"
	"tefi/server/internal/models"
	"tefi/server/internal/web"
)

// PropertyStore is the storage the handlers need.
type PropertyStore interface {
	ListProperties(ctx context.Context) ([]models.Property, error)
	CreateProperty(ctx context.Context, address string, priceGuide int64) (*models.Property, error)
	GetPropertyByCode(ctx context.Context, code string) (*models.Property, error)
	Ping(ctx context.Context) error
}

// Publisher receives every newly created property.
type Publisher interface {
	Push(property *models.Property) error
}

type Handler struct {
	store         PropertyStore
	publisher     Publisher
	logger        *logrus.Logger
	publicBaseURL string
}

// NewHandler wires the handlers. publisher may be nil.
func NewHandler(store PropertyStore, publisher Publisher, logger *logrus.Logger, publicBaseURL string) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Handler{
		store:         store,
		publisher:     publisher,
		logger:        logger,
		publicBaseURL: publicBaseURL,
	}
}

func (h *Handler) page(data gin.H) gin.H {
	data["title"] = web.Title
	data["patent"] = web.Patent
	return data
}

func (h *Handler) renderError(c *gin.Context, status int, message string) {
	c.HTML(status, "error.html", h.page(gin.H{"message": message}))
}

// Dashboard lists every property with its shareable link.
func (h *Handler) Dashboard(c *gin.Context) {
	properties, err := h.store.ListProperties(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get properties")
		h.renderError(c, http.StatusInternalServerError, "Kunne ikke hente boliger")
		return
	}

	c.HTML(http.StatusOK, "dashboard.html", h.page(gin.H{
		"properties": properties,
		"baseURL":    h.publicBaseURL,
	}))
}

// NewProperty registers a property from the dashboard form and redirects back.
func (h *Handler) NewProperty(c *gin.Context) {
	address, ok := c.GetPostForm("address")
	if !ok {
		h.renderError(c, http.StatusBadRequest, "Mangler adresse")
		return
	}
	rawPrice, ok := c.GetPostForm("price_guide")
	if !ok {
		h.renderError(c, http.StatusBadRequest, "Mangler prisantydning")
		return
	}

	price, err := models.ParsePriceGuide(rawPrice)
	if err != nil {
		h.logger.WithError(err).WithField("price_guide", rawPrice).Error("Failed to parse price guide")
		h.renderError(c, http.StatusInternalServerError, "Ugyldig prisantydning")
		return
	}

	property, err := h.store.CreateProperty(c.Request.Context(), address, price)
	if err != nil {
		h.logger.WithError(err).Error("Failed to create property")
		h.renderError(c, http.StatusInternalServerError, "Kunne ikke registrere boligen")
		return
	}

	h.logger.WithFields(logrus.Fields{
		"id":          property.ID,
		"code":        property.UniqueCode,
		"price_guide": property.PriceGuide,
	}).Info("Created property")

	if h.publisher != nil {
		if err := h.publisher.Push(property); err != nil {
			h.logger.WithError(err).WithField("code", property.UniqueCode).Warn("Failed to queue new property")
		}
	}

	c.Redirect(http.StatusSeeOther, "/")
}

// BidderPage shows the public page of the property addressed by :code.
func (h *Handler) BidderPage(c *gin.Context) {
	code := c.Param("code")
	property, err := h.store.GetPropertyByCode(c.Request.Context(), code)
	switch {
	case errors.Is(err, database.ErrPropertyNotFound):
		c.HTML(http.StatusNotFound, "not_found.html", h.page(gin.H{"message": web.NotFoundMessage}))
	case err != nil:
		h.logger.WithError(err).WithField("code", code).Error("Failed to get property")
		h.renderError(c, http.StatusInternalServerError, "Kunne ikke hente boligen")
	default:
		c.HTML(http.StatusOK, "bidder.html", h.page(gin.H{"prop": property}))
	}
}

func (h *Handler) GetAllProperties(c *gin.Context) {
	properties, err := h.store.ListProperties(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get properties")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get properties"})
		return
	}

	c.JSON(http.StatusOK, properties)
}

func (h *Handler) GetProperty(c *gin.Context) {
	code := c.Param("code")
	property, err := h.store.GetPropertyByCode(c.Request.Context(), code)
	switch {
	case errors.Is(err, database.ErrPropertyNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": web.NotFoundMessage})
	case err != nil:
		h.logger.WithError(err).WithField("code", code).Error("Failed to get property")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get property"})
	default:
		c.JSON(http.StatusOK, property)
	}
}

func (h *Handler) Health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		h.logger.WithError(err).Error("Database ping failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
