package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"horizont/internal/auth"
	"horizont/internal/discussions"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// APIHandler exposes the discussion service as a single query/mutation
// endpoint. Every operation takes named, typed arguments and an optional
// field projection.
type APIHandler struct {
	service *discussions.Service
	log     *logrus.Logger
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(db *gorm.DB, fetcher discussions.Fetcher, log *logrus.Logger) *APIHandler {
	return &APIHandler{
		service: discussions.NewService(db, fetcher, log),
		log:     log,
	}
}

type apiRequest struct {
	Operation string                 `json:"operation"`
	Arguments map[string]interface{} `json:"arguments"`
	Fields    []string               `json:"fields"`
}

// Handle dispatches POST /api requests to the named operation.
func (h *APIHandler) Handle(c *gin.Context) {
	var req apiRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Operation == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": `field "operation" is required`})
		return
	}

	ctx := c.Request.Context()
	caller := auth.Username(c)
	args := req.Arguments

	switch req.Operation {
	case "getDiscussions":
		topic, err := stringArg(args, "topic")
		if err == nil {
			var count int
			count, err = intArg(args, "count")
			if err == nil {
				list, svcErr := h.service.GetDiscussions(ctx, topic, count, req.Fields)
				if svcErr != nil {
					h.respondError(c, svcErr)
					return
				}
				projected := make([]map[string]interface{}, 0, len(list))
				for i := range list {
					projected = append(projected, project(&list[i], req.Fields))
				}
				h.respondData(c, projected)
				return
			}
		}
		h.respondArgError(c, err)

	case "getComments":
		discussionID, err := stringArg(args, "discussionId")
		if err == nil {
			var count int
			count, err = optionalIntArg(args, "count")
			if err == nil {
				comments, svcErr := h.service.GetComments(ctx, discussionID, count)
				if svcErr != nil {
					h.respondError(c, svcErr)
					return
				}
				projected := make([]map[string]interface{}, 0, len(comments))
				for i := range comments {
					projected = append(projected, project(&comments[i], req.Fields))
				}
				h.respondData(c, projected)
				return
			}
		}
		h.respondArgError(c, err)

	case "addDiscussionByUrl":
		url, err := stringArg(args, "url")
		if err != nil {
			h.respondArgError(c, err)
			return
		}
		discussion, svcErr := h.service.CreateDiscussionByURL(ctx, url, caller)
		if svcErr != nil {
			h.respondError(c, svcErr)
			return
		}
		h.respondData(c, project(discussion, req.Fields))

	case "deleteDiscussion":
		h.booleanMutation(c, args, "shortId", func(shortID string) (bool, error) {
			return h.service.DeleteDiscussion(ctx, shortID)
		})

	case "editDiscussion":
		shortID, err := stringArg(args, "shortId")
		if err == nil {
			var newTitle, newDescription string
			newTitle, err = optionalStringArg(args, "newTitle")
			if err == nil {
				newDescription, err = optionalStringArg(args, "newDescription")
				if err == nil {
					matched, svcErr := h.service.EditDiscussion(ctx, shortID, newTitle, newDescription)
					if svcErr != nil {
						h.respondError(c, svcErr)
						return
					}
					h.respondData(c, matched)
					return
				}
			}
		}
		h.respondArgError(c, err)

	case "postComment":
		discussionID, err := stringArg(args, "discussionId")
		if err == nil {
			var text string
			text, err = stringArg(args, "text")
			if err == nil {
				found, svcErr := h.service.PostComment(ctx, discussionID, text, caller)
				if svcErr != nil {
					h.respondError(c, svcErr)
					return
				}
				h.respondData(c, found)
				return
			}
		}
		h.respondArgError(c, err)

	case "deleteComment":
		h.booleanMutation(c, args, "shortId", func(shortID string) (bool, error) {
			return h.service.DeleteComment(ctx, shortID)
		})

	case "editComment":
		shortID, err := stringArg(args, "shortId")
		if err == nil {
			var newText string
			newText, err = stringArg(args, "newText")
			if err == nil {
				updated, svcErr := h.service.EditComment(ctx, shortID, newText)
				if svcErr != nil {
					h.respondError(c, svcErr)
					return
				}
				h.respondData(c, updated)
				return
			}
		}
		h.respondArgError(c, err)

	case "agreeOrDisagree":
		shortID, err := stringArg(args, "shortId")
		if err == nil {
			var isAgree, isDiscussion bool
			isAgree, err = boolArg(args, "isAgree")
			if err == nil {
				isDiscussion, err = optionalBoolArg(args, "isDiscussion", true)
				if err == nil {
					if svcErr := h.service.AgreeOrDisagree(ctx, shortID, isAgree, isDiscussion, caller); svcErr != nil {
						h.respondError(c, svcErr)
						return
					}
					h.respondData(c, true)
					return
				}
			}
		}
		h.respondArgError(c, err)

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown operation %q", req.Operation)})
	}
}

// booleanMutation handles the operations that take a single shortId and
// report whether anything matched.
func (h *APIHandler) booleanMutation(c *gin.Context, args map[string]interface{}, argName string, op func(string) (bool, error)) {
	shortID, err := stringArg(args, argName)
	if err != nil {
		h.respondArgError(c, err)
		return
	}

	result, svcErr := op(shortID)
	if svcErr != nil {
		h.respondError(c, svcErr)
		return
	}
	h.respondData(c, result)
}

func (h *APIHandler) respondData(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func (h *APIHandler) respondArgError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// respondError maps service failures onto protocol responses without
// altering their user-visible message text.
func (h *APIHandler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, discussions.ErrInvalidURL):
		status = http.StatusBadRequest
	case errors.Is(err, discussions.ErrNoDiscussion), errors.Is(err, discussions.ErrVoteTargetNotFound):
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// HealthCheck handles GET /health
func (h *APIHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "horizont",
	})
}

/* ----- argument validation ----- */

func missingArg(name string) error {
	return fmt.Errorf("argument %q is required and was not provided", name)
}

func stringArg(args map[string]interface{}, name string) (string, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return "", missingArg(name)
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string", name)
	}
	return value, nil
}

func optionalStringArg(args map[string]interface{}, name string) (string, error) {
	if raw, ok := args[name]; ok && raw != nil {
		value, ok := raw.(string)
		if !ok {
			return "", fmt.Errorf("argument %q must be a string", name)
		}
		return value, nil
	}
	return "", nil
}

func intArg(args map[string]interface{}, name string) (int, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return 0, missingArg(name)
	}
	return numberValue(raw, name)
}

func optionalIntArg(args map[string]interface{}, name string) (int, error) {
	if raw, ok := args[name]; ok && raw != nil {
		return numberValue(raw, name)
	}
	return 0, nil
}

func numberValue(raw interface{}, name string) (int, error) {
	// JSON numbers decode as float64.
	value, ok := raw.(float64)
	if !ok || value != float64(int(value)) {
		return 0, fmt.Errorf("argument %q must be an integer", name)
	}
	return int(value), nil
}

func boolArg(args map[string]interface{}, name string) (bool, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return false, missingArg(name)
	}
	value, ok := raw.(bool)
	if !ok {
		return false, fmt.Errorf("argument %q must be a boolean", name)
	}
	return value, nil
}

func optionalBoolArg(args map[string]interface{}, name string, fallback bool) (bool, error) {
	if raw, ok := args[name]; ok && raw != nil {
		value, ok := raw.(bool)
		if !ok {
			return false, fmt.Errorf("argument %q must be a boolean", name)
		}
		return value, nil
	}
	return fallback, nil
}

// project shapes a response record down to the requested fields. An empty
// field list returns the full record; requested fields absent from the
// record come back null, so the response always has exactly the asked-for
// keys.
func project(record interface{}, fields []string) map[string]interface{} {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil
	}
	var full map[string]interface{}
	if err := json.Unmarshal(raw, &full); err != nil {
		return nil
	}
	if len(fields) == 0 {
		return full
	}

	shaped := make(map[string]interface{}, len(fields))
	for _, field := range fields {
		if value, ok := full[field]; ok {
			shaped[field] = value
		} else {
			shaped[field] = nil
		}
	}
	return shaped
}
