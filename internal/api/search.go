package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/drissea/reelsync/internal/cache"
	"github.com/drissea/reelsync/internal/vecindex"
)

// Index contents only change when a sync lands, so short caching keeps
// repeated queries off the vector API.
const searchCacheTTL = 5 * time.Minute

// searchHandler runs a semantic query over indexed reels
func (r *Router) searchHandler(c *gin.Context) {
	if r.search == nil {
		abortWithError(c, http.StatusServiceUnavailable, "semantic search is not configured")
		return
	}

	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		abortWithError(c, http.StatusBadRequest, "q is required")
		return
	}
	limit := parseLimit(c, 10, 50)

	// Hash the key so long queries stay out of the Redis keyspace
	cacheKey := cache.HashKey("search", query, strconv.Itoa(limit))
	var cached []vecindex.Match
	if err := r.cache.GetJSON(cacheKey, &cached); err == nil {
		c.JSON(http.StatusOK, gin.H{
			"query":   query,
			"count":   len(cached),
			"results": cached,
		})
		return
	}

	matches, err := r.search.Query(c.Request.Context(), query, limit)
	if err != nil {
		r.logger.Error("Semantic search failed",
			zap.String("query", query),
			zap.Error(err))
		abortWithError(c, http.StatusBadGateway, "search backend unavailable")
		return
	}

	if err := r.cache.SetJSON(cacheKey, matches, searchCacheTTL); err != nil && !errors.Is(err, cache.ErrCacheDisabled) {
		r.logger.Warn("Failed to cache search results", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"count":   len(matches),
		"results": matches,
	})
}

// searchAccountsHandler proxies an account search to the upstream API
func (r *Router) searchAccountsHandler(c *gin.Context) {
	if r.source == nil {
		abortWithError(c, http.StatusServiceUnavailable, "upstream search is not configured")
		return
	}

	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		abortWithError(c, http.StatusBadRequest, "q is required")
		return
	}
	limit := parseLimit(c, 10, 50)

	hits, err := r.source.SearchAccounts(c.Request.Context(), query, limit)
	if err != nil {
		r.logger.Error("Upstream account search failed",
			zap.String("query", query),
			zap.Error(err))
		abortWithError(c, http.StatusBadGateway, "upstream search failed")
		return
	}

	result := make([]map[string]interface{}, len(hits))
	for i, hit := range hits {
		result[i] = map[string]interface{}{
			"user_id":         hit.UserID,
			"username":        hit.Username,
			"full_name":       hit.FullName,
			"profile_pic_url": hit.ProfilePicURL,
			"is_verified":     hit.IsVerified,
			"follower_count":  hit.FollowerCount,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"query":    query,
		"count":    len(result),
		"accounts": result,
	})
}

// searchTagReelsHandler proxies a hashtag clip search to the upstream API
func (r *Router) searchTagReelsHandler(c *gin.Context) {
	if r.source == nil {
		abortWithError(c, http.StatusServiceUnavailable, "upstream search is not configured")
		return
	}

	tag := strings.TrimSpace(strings.TrimPrefix(c.Param("tag"), "#"))
	if tag == "" {
		abortWithError(c, http.StatusBadRequest, "tag is required")
		return
	}
	limit := parseLimit(c, 20, 100)

	posts, err := r.source.SearchClips(c.Request.Context(), tag, limit)
	if err != nil {
		r.logger.Error("Upstream tag search failed",
			zap.String("tag", tag),
			zap.Error(err))
		abortWithError(c, http.StatusBadGateway, "upstream search failed")
		return
	}

	result := make([]map[string]interface{}, len(posts))
	for i := range posts {
		result[i] = reelResponse(&posts[i])
	}

	c.JSON(http.StatusOK, gin.H{
		"tag":   tag,
		"count": len(result),
		"reels": result,
	})
}
