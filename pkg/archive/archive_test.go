package archive_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mailroom/pkg/archive"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	f.types[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchKey", Message: "missing"}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "messages/rec-1/message.html", archive.Key("messages", "rec-1", archive.PartHTML))
	assert.Equal(t, "rec-1/meta.json", archive.Key("", "rec-1", archive.PartMeta))
	assert.Equal(t, "messages/_etc_passwd/message.txt", archive.Key("/messages/", "../etc/passwd", archive.PartText))
}

func TestS3Archive_StoreAndOpen(t *testing.T) {
	t.Parallel()

	client := newFakeS3()
	a := archive.NewWithClient(client, archive.Config{Bucket: "mail", Prefix: "messages"})

	entry := archive.Entry{
		RecordID:          "rec-1",
		Template:          "invoice",
		ProviderMessageID: "msg-1",
		From:              "billing@acme.test",
		To:                []string{"jane@acme.com"},
		Subject:           "Invoice INV-00042",
		SentAt:            time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		HTML:              "<p>$1,130.00</p>",
		Text:              "$1,130.00",
	}
	require.NoError(t, a.Store(context.Background(), entry))

	assert.Len(t, client.objects, 3)
	assert.Equal(t, "text/html; charset=utf-8", client.types["messages/rec-1/message.html"])

	rc, err := a.Open(context.Background(), "rec-1", archive.PartMeta)
	require.NoError(t, err)
	defer rc.Close()

	var meta map[string]any
	require.NoError(t, json.NewDecoder(rc).Decode(&meta))
	assert.Equal(t, "msg-1", meta["provider_message_id"])
	assert.NotContains(t, meta, "HTML")

	rc, err = a.Open(context.Background(), "rec-1", archive.PartText)
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "$1,130.00", string(body))
}

func TestS3Archive_Errors(t *testing.T) {
	t.Parallel()

	a := archive.NewWithClient(newFakeS3(), archive.Config{Bucket: "mail"})

	require.ErrorIs(t, a.Store(context.Background(), archive.Entry{}), archive.ErrInvalidEntry)

	_, err := a.Open(context.Background(), "missing", archive.PartHTML)
	require.ErrorIs(t, err, archive.ErrNotFound)

	_, err = a.Open(context.Background(), "rec-1", archive.Part("other.bin"))
	require.ErrorIs(t, err, archive.ErrUnknownPart)

	_, err = a.URL(context.Background(), "rec-1", archive.PartHTML, time.Minute)
	require.ErrorIs(t, err, archive.ErrPresignFailed)

	failing := newFakeS3()
	failing.putErr = &smithy.GenericAPIError{Code: "AccessDenied", Message: "no"}
	err = archive.NewWithClient(failing, archive.Config{Bucket: "mail"}).Store(context.Background(), archive.Entry{RecordID: "r", Text: "x"})
	require.ErrorIs(t, err, archive.ErrAccessDenied)
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := archive.New(archive.Config{})
	require.ErrorIs(t, err, archive.ErrInvalidConfig)

	a, err := archive.New(archive.Config{Bucket: "mail", AccessKey: "k", SecretKey: "s", Endpoint: "http://localhost:9000", PathStyle: true})
	require.NoError(t, err)

	url, err := a.URL(context.Background(), "rec-1", archive.PartHTML, time.Minute)
	require.NoError(t, err)
	assert.Contains(t, url, "localhost:9000/mail/rec-1/message.html")
}
