package s3

import (
	"bufio"
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

const (
	fakeBucket   = "pathway-test"
	fakePageSize = 2
	metaHeader   = "X-Amz-Meta-"
)

// NewMockForTests returns a Store talking to an in-process fake of the S3
// object API: PutObject (with If-None-Match), GetObject, HeadObject,
// DeleteObject and paginated ListObjectsV2. Nothing leaves the process.
func NewMockForTests() *Store {
	return newFakeStore(newFakeS3(), "")
}

func newFakeStore(f *fakeS3, prefix string) *Store {
	awsCfg := aws.Config{
		Region:      defaultRegion,
		Credentials: credentials.NewStaticCredentialsProvider("AKIDFAKE", "fake-secret", ""),
	}
	return newStore(awsCfg, Config{
		Bucket:    fakeBucket,
		Prefix:    prefix,
		Endpoint:  "https://s3.fake.invalid",
		PathStyle: true,
	}, &http.Client{Transport: f})
}

type fakeObject struct {
	body         []byte
	contentType  string
	metadata     map[string]string
	etag         string
	lastModified time.Time
}

// fakeS3 serves a single bucket from memory. It records the number of
// requests per method for assertions.
type fakeS3 struct {
	mu       sync.Mutex
	objects  map[string]fakeObject
	requests map[string]int
	now      func() time.Time
}

func newFakeS3() *fakeS3 {
	return &fakeS3{
		objects:  make(map[string]fakeObject),
		requests: make(map[string]int),
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
}

func (f *fakeS3) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[method]
}

// RoundTrip implements http.RoundTripper by serving the request in-process.
func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	rec := httptest.NewRecorder()
	f.ServeHTTP(rec, req)
	resp := rec.Result()
	resp.Request = req
	return resp, nil
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests[req.Method]++

	bucket, key, _ := strings.Cut(strings.TrimPrefix(req.URL.Path, "/"), "/")
	if bucket != fakeBucket {
		writeS3Error(w, http.StatusNotFound, "NoSuchBucket")
		return
	}
	switch {
	case req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2":
		f.list(w, req)
	case req.Method == http.MethodPut:
		f.put(w, req, key)
	case req.Method == http.MethodGet, req.Method == http.MethodHead:
		f.get(w, req, key)
	case req.Method == http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		writeS3Error(w, http.StatusNotImplemented, "NotImplemented")
	}
}

func (f *fakeS3) put(w http.ResponseWriter, req *http.Request, key string) {
	body, err := readPutBody(req)
	if err != nil {
		writeS3Error(w, http.StatusBadRequest, "IncompleteBody")
		return
	}
	if _, exists := f.objects[key]; exists && req.Header.Get("If-None-Match") == "*" {
		writeS3Error(w, http.StatusPreconditionFailed, "PreconditionFailed")
		return
	}
	md := make(map[string]string)
	for name, values := range req.Header {
		if strings.HasPrefix(name, metaHeader) && len(values) > 0 {
			md[strings.ToLower(strings.TrimPrefix(name, metaHeader))] = values[0]
		}
	}
	sum := md5.Sum(body)
	obj := fakeObject{
		body:         body,
		contentType:  req.Header.Get("Content-Type"),
		metadata:     md,
		etag:         `"` + hex.EncodeToString(sum[:]) + `"`,
		lastModified: f.now(),
	}
	f.objects[key] = obj
	w.Header().Set("ETag", obj.etag)
	w.WriteHeader(http.StatusOK)
}

func (f *fakeS3) get(w http.ResponseWriter, req *http.Request, key string) {
	obj, ok := f.objects[key]
	if !ok {
		if req.Method == http.MethodHead {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeS3Error(w, http.StatusNotFound, "NoSuchKey")
		return
	}
	h := w.Header()
	h.Set("Content-Length", strconv.Itoa(len(obj.body)))
	h.Set("ETag", obj.etag)
	h.Set("Last-Modified", obj.lastModified.Format(http.TimeFormat))
	if obj.contentType != "" {
		h.Set("Content-Type", obj.contentType)
	}
	for k, v := range obj.metadata {
		h.Set(metaHeader+k, v)
	}
	w.WriteHeader(http.StatusOK)
	if req.Method == http.MethodGet {
		_, _ = w.Write(obj.body)
	}
}

type listContent struct {
	Key          string `xml:"Key"`
	Size         int    `xml:"Size"`
	ETag         string `xml:"ETag"`
	LastModified string `xml:"LastModified"`
}

type listResult struct {
	XMLName               xml.Name      `xml:"ListBucketResult"`
	Name                  string        `xml:"Name"`
	Prefix                string        `xml:"Prefix"`
	KeyCount              int           `xml:"KeyCount"`
	IsTruncated           bool          `xml:"IsTruncated"`
	NextContinuationToken string        `xml:"NextContinuationToken,omitempty"`
	Contents              []listContent `xml:"Contents"`
}

// list pages through keys in lexical order; the continuation token is the
// last key of the previous page.
func (f *fakeS3) list(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	prefix, after := q.Get("prefix"), q.Get("continuation-token")
	keys := slices.Sorted(maps.Keys(f.objects))
	res := listResult{Name: fakeBucket, Prefix: prefix}
	for _, k := range keys {
		if !strings.HasPrefix(k, prefix) || (after != "" && k <= after) {
			continue
		}
		if len(res.Contents) == fakePageSize {
			res.IsTruncated = true
			res.NextContinuationToken = res.Contents[len(res.Contents)-1].Key
			break
		}
		obj := f.objects[k]
		res.Contents = append(res.Contents, listContent{
			Key:          k,
			Size:         len(obj.body),
			ETag:         obj.etag,
			LastModified: obj.lastModified.Format(time.RFC3339),
		})
	}
	res.KeyCount = len(res.Contents)
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_ = xml.NewEncoder(w).Encode(res)
}

func writeS3Error(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, "<?xml version=\"1.0\" encoding=\"UTF-8\"?><Error><Code>%s</Code><Message>%s</Message></Error>", code, code)
}

// readPutBody returns the object payload, unwrapping aws-chunked uploads the
// SDK uses for streaming bodies with trailing checksums.
func readPutBody(req *http.Request) ([]byte, error) {
	raw, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(req.Header.Get("Content-Encoding"), "aws-chunked") &&
		req.Header.Get("X-Amz-Decoded-Content-Length") == "" {
		return raw, nil
	}
	return decodeAWSChunked(raw)
}

// decodeAWSChunked reads "<hex-size>[;ext]\r\n<data>\r\n" frames up to the
// zero-sized terminator. Trailer headers after it are ignored.
func decodeAWSChunked(raw []byte) ([]byte, error) {
	r := bufio.NewReader(bytes.NewReader(raw))
	var out bytes.Buffer
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("chunk header: %w", err)
		}
		sizeField, _, _ := strings.Cut(strings.TrimRight(line, "\r\n"), ";")
		size, err := strconv.ParseInt(strings.TrimSpace(sizeField), 16, 64)
		if err != nil {
			return nil, fmt.Errorf("chunk size %q: %w", sizeField, err)
		}
		if size == 0 {
			return out.Bytes(), nil
		}
		if _, err := io.CopyN(&out, r, size); err != nil {
			return nil, fmt.Errorf("chunk data: %w", err)
		}
		if _, err := r.Discard(2); err != nil {
			return nil, fmt.Errorf("chunk terminator: %w", err)
		}
	}
}

// seed stores an object directly, bypassing the HTTP layer.
func (f *fakeS3) seed(key string, body []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sum := md5.Sum(body)
	f.objects[key] = fakeObject{body: body, etag: `"` + hex.EncodeToString(sum[:]) + `"`, lastModified: f.now()}
}
