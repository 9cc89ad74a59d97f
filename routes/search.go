package routes

import (
	"net/http"
	"strconv"
	"strings"

	"tax-document-platform/services"
	"tax-document-platform/utils"

	"github.com/gin-gonic/gin"
)

// HandleSearch answers q with the best available tier. The tier label
// in the response tells the client how the results were produced.
func HandleSearch(search *services.SearchService) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := strings.TrimSpace(c.Query("q"))
		if query == "" {
			utils.RespondWithBadRequest(c, "Query parameter 'q' is required", nil)
			return
		}

		limit := 0
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				utils.RespondWithBadRequest(c, "Invalid limit parameter", nil)
				return
			}
			limit = parsed
		}

		resp := search.Search(c.Request.Context(), query, limit)
		c.JSON(http.StatusOK, gin.H{
			"query":   query,
			"tier":    resp.Tier,
			"results": resp.Results,
			"count":   len(resp.Results),
		})
	}
}
