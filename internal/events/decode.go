// Package events turns object-storage notifications into ingestion requests.
//
// Accepted payloads:
//   - a GCS object resource ({"bucket","name","contentType",...})
//   - a Pub/Sub push envelope whose message data is a GCS object resource
//   - a structured CloudEvent whose data is a GCS object resource
//   - S3 or MinIO bucket notifications ({"Records":[...]} or MinIO's {"Event":[...]})
package events

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/markdave123-py/Dossier/internal/core"
	"github.com/markdave123-py/Dossier/internal/models"
)

type gcsObject struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        string `json:"size"`
}

type pubsubPush struct {
	Message *struct {
		Data       string            `json:"data"`
		Attributes map[string]string `json:"attributes"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

type cloudEvent struct {
	SpecVersion string          `json:"specversion"`
	Type        string          `json:"type"`
	Data        json.RawMessage `json:"data"`
}

type s3Record struct {
	EventName string `json:"eventName"`
	S3        struct {
		Bucket struct {
			Name string `json:"name"`
		} `json:"bucket"`
		Object struct {
			Key         string `json:"key"`
			Size        int64  `json:"size"`
			ContentType string `json:"contentType"`
		} `json:"object"`
	} `json:"s3"`
}

type envelope struct {
	pubsubPush
	cloudEvent
	gcsObject
	Records []s3Record `json:"Records"`
	Event   []s3Record `json:"Event"`
}

// Decode parses one notification payload. It returns no objects, and no
// error, for notifications that do not announce a new object (deletes,
// metadata updates, folder placeholders).
func Decode(payload []byte) ([]models.SourceObject, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: notification is not JSON: %v", core.ErrInvalidInput, err)
	}

	switch {
	case env.Message != nil:
		if t := env.Message.Attributes["eventType"]; t != "" && t != "OBJECT_FINALIZE" {
			return nil, nil
		}
		data, err := base64.StdEncoding.DecodeString(env.Message.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: pubsub message data: %v", core.ErrInvalidInput, err)
		}
		var obj gcsObject
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, fmt.Errorf("%w: pubsub message data: %v", core.ErrInvalidInput, err)
		}
		return fromGCS(obj)

	case env.SpecVersion != "":
		if env.Type != "" && !strings.HasSuffix(env.Type, ".finalized") {
			return nil, nil
		}
		var obj gcsObject
		if err := json.Unmarshal(env.Data, &obj); err != nil {
			return nil, fmt.Errorf("%w: cloudevent data: %v", core.ErrInvalidInput, err)
		}
		return fromGCS(obj)

	case env.Records != nil || env.Event != nil:
		return fromS3(append(env.Records, env.Event...))

	case env.Bucket != "" || env.Name != "":
		return fromGCS(env.gcsObject)
	}
	return nil, fmt.Errorf("%w: unrecognised notification", core.ErrInvalidInput)
}

func fromGCS(obj gcsObject) ([]models.SourceObject, error) {
	if obj.Bucket == "" || obj.Name == "" {
		return nil, fmt.Errorf("%w: object notification without bucket or name", core.ErrInvalidInput)
	}
	if strings.HasSuffix(obj.Name, "/") {
		return nil, nil
	}
	size, _ := strconv.ParseInt(obj.Size, 10, 64)
	return []models.SourceObject{{
		ContainerID:         obj.Bucket,
		ObjectKey:           obj.Name,
		DeclaredContentType: contentType(obj.ContentType, obj.Name),
		ByteLength:          size,
	}}, nil
}

func fromS3(records []s3Record) ([]models.SourceObject, error) {
	var out []models.SourceObject
	for _, r := range records {
		if r.EventName != "" && !strings.Contains(r.EventName, "ObjectCreated") {
			continue
		}
		// S3 form-encodes keys in notifications.
		key, err := url.QueryUnescape(r.S3.Object.Key)
		if err != nil {
			return nil, fmt.Errorf("%w: object key %q: %v", core.ErrInvalidInput, r.S3.Object.Key, err)
		}
		if r.S3.Bucket.Name == "" || key == "" {
			return nil, fmt.Errorf("%w: record without bucket or key", core.ErrInvalidInput)
		}
		if strings.HasSuffix(key, "/") {
			continue
		}
		out = append(out, models.SourceObject{
			ContainerID:         r.S3.Bucket.Name,
			ObjectKey:           key,
			DeclaredContentType: contentType(r.S3.Object.ContentType, key),
			ByteLength:          r.S3.Object.Size,
		})
	}
	return out, nil
}

// contentType falls back to the key's extension when the notification does
// not carry a type, as plain S3 records do not.
func contentType(declared, key string) string {
	if declared != "" {
		return declared
	}
	return mime.TypeByExtension(path.Ext(key))
}
