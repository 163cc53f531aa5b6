package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lokmen200/soukstyle/pkg/models"
	"github.com/lokmen200/soukstyle/pkg/service"
	"github.com/lokmen200/soukstyle/pkg/storage"
)

type productRequest struct {
	ShopID            string           `json:"shop_id" form:"shop_id"`
	Name              string           `json:"name" form:"name"`
	Description       string           `json:"description" form:"description"`
	Price             float64          `json:"price" form:"price"`
	Stock             int              `json:"stock" form:"stock"`
	LowStockThreshold int              `json:"low_stock_threshold" form:"low_stock_threshold"`
	CategoryID        string           `json:"category_id" form:"category_id"`
	Image             string           `json:"image" form:"image"`
	Variants          []models.Variant `json:"variants" form:"-"`
}

type productUpdateRequest struct {
	Name              *string           `json:"name"`
	Description       *string           `json:"description"`
	Price             *float64          `json:"price"`
	Stock             *int              `json:"stock"`
	LowStockThreshold *int              `json:"low_stock_threshold"`
	CategoryID        *string           `json:"category_id"`
	Image             *string           `json:"image"`
	Variants          *[]models.Variant `json:"variants"`
}

// productQuery reads category, shop, minPrice, maxPrice, search, sort
// ("price", "-price"), page and limit.
func productQuery(c *gin.Context) (models.ProductQuery, error) {
	var q models.ProductQuery
	var err error

	if q.CategoryID, err = optionalID(c.Query("category")); err != nil {
		return q, service.Invalid("invalid category")
	}
	if q.ShopID, err = optionalID(c.Query("shop")); err != nil {
		return q, service.Invalid("invalid shop")
	}
	if q.MinPrice, err = optionalFloat(c.Query("minPrice")); err != nil {
		return q, service.Invalid("invalid minPrice")
	}
	if q.MaxPrice, err = optionalFloat(c.Query("maxPrice")); err != nil {
		return q, service.Invalid("invalid maxPrice")
	}
	q.Search = strings.TrimSpace(c.Query("search"))

	sort := c.Query("sort")
	q.SortDesc = strings.HasPrefix(sort, "-")
	q.SortField = strings.TrimPrefix(sort, "-")

	q.Page, _ = strconv.ParseInt(c.Query("page"), 10, 64)
	q.Limit, _ = strconv.ParseInt(c.Query("limit"), 10, 64)
	return q, nil
}

func optionalFloat(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (g *Gateway) listProducts(c *gin.Context) {
	q, err := productQuery(c)
	if err != nil {
		g.respondError(c, err)
		return
	}
	page, err := g.deps.Services.Products.List(c.Request.Context(), q)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (g *Gateway) trendingProducts(c *gin.Context) {
	list, err := g.deps.Services.Products.Trending(c.Request.Context())
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (g *Gateway) getProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := g.deps.Services.Products.Get(c.Request.Context(), id)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// createProduct accepts JSON or a multipart form with an optional "image"
// file; multipart variants arrive as a JSON string field.
func (g *Gateway) createProduct(c *gin.Context) {
	var req productRequest
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBind(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		if raw := c.PostForm("variants"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &req.Variants); err != nil {
				badRequest(c, "invalid variants")
				return
			}
		}
		url, ok := g.saveUpload(c, "image")
		if !ok {
			return
		}
		if url != "" {
			req.Image = url
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	shopID, err := optionalID(req.ShopID)
	if err != nil {
		badRequest(c, "invalid shop_id")
		return
	}
	categoryID, err := optionalID(req.CategoryID)
	if err != nil {
		badRequest(c, "invalid category_id")
		return
	}

	p, err := g.deps.Services.Products.Create(c.Request.Context(), currentUser(c), service.ProductInput{
		ShopID:            shopID,
		Name:              req.Name,
		Description:       req.Description,
		Price:             req.Price,
		Stock:             req.Stock,
		LowStockThreshold: req.LowStockThreshold,
		CategoryID:        categoryID,
		Image:             req.Image,
		Variants:          req.Variants,
	})
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (g *Gateway) updateProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req productUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	in := service.ProductUpdate{
		Name:              req.Name,
		Description:       req.Description,
		Price:             req.Price,
		Stock:             req.Stock,
		LowStockThreshold: req.LowStockThreshold,
		Image:             req.Image,
		Variants:          req.Variants,
	}
	if req.CategoryID != nil {
		cat, err := optionalID(*req.CategoryID)
		if err != nil {
			badRequest(c, "invalid category_id")
			return
		}
		in.CategoryID = &cat
	}

	p, err := g.deps.Services.Products.Update(c.Request.Context(), currentUser(c), id, in)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (g *Gateway) deleteProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := g.deps.Services.Products.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
}

// saveUpload stores the named multipart file. An absent file yields "".
func (g *Gateway) saveUpload(c *gin.Context, field string) (string, bool) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", true
		}
		badRequest(c, err.Error())
		return "", false
	}
	if g.config.Uploads.MaxBytes > 0 && fh.Size > g.config.Uploads.MaxBytes {
		badRequest(c, field+" is too large")
		return "", false
	}
	f, err := fh.Open()
	if err != nil {
		g.respondError(c, err)
		return "", false
	}
	defer f.Close()

	url, err := g.deps.Uploader.Save(c.Request.Context(), fh.Filename, f)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedType) {
			badRequest(c, err.Error())
			return "", false
		}
		g.respondError(c, err)
		return "", false
	}
	return url, true
}
