package profile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/rally-backend/internal/engine"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		p       Profile
		wantErr error
	}{
		{name: "default profile", p: Default("alice")},
		{name: "unicode name", p: Profile{Username: "小明", Skills: map[string]int{"smash": 100}}},
		{name: "empty name", p: Profile{Username: ""}, wantErr: ErrInvalidName},
		{name: "path separator", p: Profile{Username: "../etc"}, wantErr: ErrInvalidName},
		{name: "dot dot", p: Profile{Username: ".."}, wantErr: ErrInvalidName},
		{name: "too long", p: Profile{Username: "abcdefghijklmnopqrstuvwxyz0123456789"}, wantErr: ErrInvalidName},
		{name: "unknown technique", p: Profile{Username: "bob", Skills: map[string]int{"volley": 10}}, wantErr: ErrInvalidSkill},
		{name: "skill above range", p: Profile{Username: "bob", Skills: map[string]int{"smash": 101}}, wantErr: ErrInvalidSkill},
		{name: "skill below range", p: Profile{Username: "bob", Skills: map[string]int{"smash": -101}}, wantErr: ErrInvalidSkill},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.p.Validate()
			if tc.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestNormalizeName(t *testing.T) {
	// "e" + combining acute composes to a single rune under NFC.
	assert.Equal(t, "\u00e9mile", NormalizeName("  e\u0301mile \t"))
}

func TestLevel_MissingAndClamped(t *testing.T) {
	p := Profile{Username: "bob", Skills: map[string]int{"smash": 250}}
	assert.Equal(t, 100, p.Level("smash"))
	assert.Zero(t, p.Level("drop"))
}

func TestPlayer_ClampsAndFillsTechniques(t *testing.T) {
	p := Profile{Username: "bob", Skills: map[string]int{"smash": 250, "serve": -300}}
	pl := p.Player()
	assert.Equal(t, "bob", pl.Name)
	assert.Len(t, pl.Skills, len(engine.Techniques))
	assert.Equal(t, 100, pl.Skills["smash"])
	assert.Equal(t, -100, pl.Skills["serve"])
	assert.Zero(t, pl.Skills["drop"])
}

func storeContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Load(ctx, "alice")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save(ctx, Profile{Username: "alice", Skills: map[string]int{"serve": 40}}))
	first, err := s.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 40, first.Skills["serve"])
	assert.False(t, first.CreatedAt.IsZero())

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, s.Save(ctx, Profile{Username: "alice", Skills: map[string]int{"serve": -20}}))
	second, err := s.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, -20, second.Skills["serve"])
	assert.True(t, second.CreatedAt.Equal(first.CreatedAt), "created_at must survive updates")
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))

	require.NoError(t, s.Close())
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore())
}

func TestMemoryStore_LoadReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, Profile{Username: "alice", Skills: map[string]int{"serve": 1}}))

	p, err := s.Load(ctx, "alice")
	require.NoError(t, err)
	p.Skills["serve"] = 99

	again, err := s.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, again.Skills["serve"])
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	storeContract(t, s)

	_, err = os.Stat(filepath.Join(dir, "alice.json"))
	require.NoError(t, err)
}

func TestFileStore_LoadUsesKeyAsUsername(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bob.json"), []byte(`{"username":"Bob","skills":{"smash":30}}`), 0o644))

	p, err := s.Load(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", p.Username)
	assert.Equal(t, 30, p.Skills["smash"])
}

func TestFileStore_RejectsTraversal(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Load(context.Background(), "../secret")
	require.ErrorIs(t, err, ErrInvalidName)
}

type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
	fail  error
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	key := in.Key["username"].(*types.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{Item: f.items[key]}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	key := in.Item["username"].(*types.AttributeValueMemberS).Value
	f.items[key] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func TestDynamoStore(t *testing.T) {
	storeContract(t, NewDynamoStore(&fakeDynamo{items: map[string]map[string]types.AttributeValue{}}, "profiles"))
}

func TestDynamoStore_WrapsClientErrors(t *testing.T) {
	boom := errors.New("throttled")
	s := NewDynamoStore(&fakeDynamo{items: map[string]map[string]types.AttributeValue{}, fail: boom}, "profiles")

	_, err := s.Load(context.Background(), "alice")
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, ErrNotFound)
}

func TestPostgresRecordMapping(t *testing.T) {
	now := time.Now()
	p := Profile{Username: "alice", Skills: map[string]int{"hook": 7}, CreatedAt: now, UpdatedAt: now}
	assert.Equal(t, p, fromRecord(toRecord(p)))
	assert.NotNil(t, toRecord(Profile{Username: "bob"}).Skills)
}
