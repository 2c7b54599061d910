package main

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"stash/codec"
	"stash/config"
	"stash/storage"
)

// maxBlobSize caps a single uploaded blob at 16 MB.
const maxBlobSize = 16 << 20

func AuthRequired() gin.HandlerFunc {
	return func(context *gin.Context) {
		if config.Config.ApiSecret != "" {
			authHeader := context.Request.Header.Get("X-Stash-Secret")
			if authHeader != config.Config.ApiSecret {
				log.Errorf("Incorrect authorisation received (%s)", authHeader)
				context.String(http.StatusUnauthorized, "Unauthorised")
				context.Abort()
				return
			}
		}
		context.Next()
	}
}

func GetHealth(c *gin.Context) {
	c.Status(http.StatusOK)
}

func GetStatus(c *gin.Context) {
	body, err := codec.JSONMarshal(store.Status())
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Data(http.StatusOK, "application/json", body)
}

// PostFlush forces a synchronous flush of every queued write.
func PostFlush(c *gin.Context) {
	start := time.Now()
	store.Flush()
	log.Infof("POST /api/flush completed in %s", time.Since(start))
	c.Status(http.StatusOK)
}

// readBody pulls the raw blob out of the request, bounded by
// maxBlobSize, plus the optional ttl query parameter in seconds.
func readBody(c *gin.Context) ([]byte, time.Duration, bool) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBlobSize+1))
	if err != nil {
		c.Status(http.StatusBadRequest)
		return nil, 0, false
	}
	if len(body) > maxBlobSize {
		c.Status(http.StatusRequestEntityTooLarge)
		return nil, 0, false
	}

	var ttl time.Duration
	if raw := c.Query("ttl"); raw != "" {
		seconds, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || seconds < 0 {
			c.Status(http.StatusBadRequest)
			return nil, 0, false
		}
		ttl = time.Duration(seconds) * time.Second
	}
	return body, ttl, true
}

func respondBlob(c *gin.Context, data []byte, err error) {
	if err == storage.ErrNotFound {
		c.Status(http.StatusNotFound)
		return
	}
	if err != nil {
		log.Errorf("GET %s error %s", c.FullPath(), err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", data)
}

func PutStoreProperty(c *gin.Context) {
	body, ttl, ok := readBody(c)
	if !ok {
		return
	}
	store.WriteStoreProperty(c.Param("name"), body, ttl)
	c.Status(http.StatusAccepted)
}

func GetStoreProperty(c *gin.Context) {
	data, err := store.ReadStoreProperty(c.Request.Context(), c.Param("name"))
	respondBlob(c, data, err)
}

func DeleteStoreProperty(c *gin.Context) {
	store.DeleteStoreProperty(c.Param("name"))
	c.Status(http.StatusAccepted)
}

func PutBucketProperty(c *gin.Context) {
	body, ttl, ok := readBody(c)
	if !ok {
		return
	}
	store.WriteBucketProperty(c.Param("bucket"), c.Param("name"), body, ttl)
	c.Status(http.StatusAccepted)
}

func GetBucketProperty(c *gin.Context) {
	data, err := store.ReadBucketProperty(c.Request.Context(), c.Param("bucket"), c.Param("name"))
	respondBlob(c, data, err)
}

func DeleteBucketProperty(c *gin.Context) {
	store.DeleteBucketProperty(c.Param("bucket"), c.Param("name"))
	c.Status(http.StatusAccepted)
}

func PutObjectBlob(c *gin.Context) {
	body, ttl, ok := readBody(c)
	if !ok {
		return
	}
	store.WriteObjectBlob(c.Param("bucket"), c.Param("object"), c.Param("name"), body, ttl)
	c.Status(http.StatusAccepted)
}

func GetObjectBlob(c *gin.Context) {
	data, err := store.ReadObjectBlob(c.Request.Context(),
		c.Param("bucket"), c.Param("object"), c.Param("name"))
	respondBlob(c, data, err)
}

func DeleteObjectBlob(c *gin.Context) {
	store.DeleteObjectBlob(c.Param("bucket"), c.Param("object"), c.Param("name"))
	c.Status(http.StatusAccepted)
}
