package client

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/url"
	"strconv"
	"time"
)

// Sign computes the aggregator's request signature: base64 of
// HMAC-SHA256(secret, timestamp + method + requestPath + body).
//
// A body of "", "{}" or "None" counts as absent and is normalized to the
// empty string before hashing; the server computes its side the same way and
// rejects anything else.
func Sign(secret, timestamp, method, requestPath, body string) string {
	body = NormalizeBody(body)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + method + requestPath + body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// NormalizeBody maps the absent-body spellings to the empty string.
func NormalizeBody(body string) string {
	if body == "{}" || body == "None" {
		return ""
	}
	return body
}

// Timestamp returns the current time as a milliseconds-since-epoch decimal
// string. Signatures are time-scoped, so a fresh value is generated per
// request.
func Timestamp() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}

// EncodeQuery percent-encodes params sorted by key. The returned string is
// used both inside the signed request path and as the query actually sent;
// the two must match byte for byte or the server rejects the signature.
func EncodeQuery(params map[string]string) string {
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	return values.Encode()
}

// RequestPath joins an endpoint and its encoded query into the exact path
// string that gets signed.
func RequestPath(endpoint string, params map[string]string) string {
	query := EncodeQuery(params)
	if query == "" {
		return endpoint
	}
	return endpoint + "?" + query
}
