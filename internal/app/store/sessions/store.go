// internal/app/store/sessions/store.go
package sessions

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/positivevibes/internal/app/system/timeouts"
	"github.com/dalemusser/positivevibes/internal/app/system/validators"
	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	gsessions "github.com/gorilla/sessions"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Record is one server-side session. The cookie carries only the signed ID.
type Record struct {
	ID        string    `bson:"_id"`
	Data      string    `bson:"data"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
	ExpiresAt time.Time `bson:"expires_at"` // TTL index field
}

// Store is a gorilla sessions.Store that keeps session values in MongoDB.
// Expired records are removed by the TTL index on expires_at; reads also
// ignore records past their expiry in case the TTL monitor lags.
type Store struct {
	c       *mongo.Collection
	Codecs  []securecookie.Codec
	Options *gsessions.Options
}

// New creates a Mongo-backed session store. keyPairs are passed to
// securecookie as in gorilla's CookieStore.
func New(db *mongo.Database, opts *gsessions.Options, keyPairs ...[]byte) *Store {
	codecs := securecookie.CodecsFromPairs(keyPairs...)
	for _, c := range codecs {
		if sc, ok := c.(*securecookie.SecureCookie); ok {
			sc.MaxAge(opts.MaxAge)
		}
	}
	return &Store{
		c:       db.Collection(validators.SessionsCollection),
		Codecs:  codecs,
		Options: opts,
	}
}

// Get returns a cached session for the request, loading it on first use.
func (s *Store) Get(r *http.Request, name string) (*gsessions.Session, error) {
	return gsessions.GetRegistry(r).Get(s, name)
}

// New returns a session for name. An unknown, expired, or tampered cookie
// yields a fresh session; only storage failures are reported as errors.
func (s *Store) New(r *http.Request, name string) (*gsessions.Session, error) {
	session := gsessions.NewSession(s, name)
	opts := *s.Options
	session.Options = &opts
	session.IsNew = true

	c, err := r.Cookie(name)
	if err != nil {
		return session, nil
	}
	var id string
	if err := securecookie.DecodeMulti(name, c.Value, &id, s.Codecs...); err != nil {
		return session, nil
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	found, err := s.load(ctx, id, session)
	if err != nil {
		return session, err
	}
	if found {
		session.ID = id
		session.IsNew = false
	}
	return session, nil
}

// Save persists the session and writes the ID cookie. A negative MaxAge
// deletes the record and expires the cookie.
func (s *Store) Save(r *http.Request, w http.ResponseWriter, session *gsessions.Session) error {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if session.Options.MaxAge < 0 {
		if err := s.Delete(ctx, session.ID); err != nil {
			return err
		}
		session.ID = ""
		http.SetCookie(w, gsessions.NewCookie(session.Name(), "", session.Options))
		return nil
	}

	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if err := s.save(ctx, session); err != nil {
		return err
	}

	encoded, err := securecookie.EncodeMulti(session.Name(), session.ID, s.Codecs...)
	if err != nil {
		return err
	}
	http.SetCookie(w, gsessions.NewCookie(session.Name(), encoded, session.Options))
	return nil
}

// Regenerate drops the stored record for session and clears its ID so the
// next Save issues a new one. Values are kept.
func (s *Store) Regenerate(r *http.Request, session *gsessions.Session) error {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := s.Delete(ctx, session.ID); err != nil {
		return err
	}
	session.ID = ""
	session.IsNew = true
	return nil
}

// Delete removes a session record. Missing records are not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// DeleteExpired removes records past their expiry. It backs up the TTL
// monitor, which only runs about once a minute.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": time.Now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *Store) load(ctx context.Context, id string, session *gsessions.Session) (bool, error) {
	var rec Record
	err := s.c.FindOne(ctx, bson.M{
		"_id":        id,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := securecookie.DecodeMulti(session.Name(), rec.Data, &session.Values, s.Codecs...); err != nil {
		// Undecodable payload (e.g. rotated keys): treat as a fresh session.
		return false, nil
	}
	return true, nil
}

func (s *Store) save(ctx context.Context, session *gsessions.Session) error {
	data, err := securecookie.EncodeMulti(session.Name(), session.Values, s.Codecs...)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	expires := now.Add(time.Duration(session.Options.MaxAge) * time.Second)
	_, err = s.c.UpdateOne(ctx,
		bson.M{"_id": session.ID},
		bson.M{
			"$set": bson.M{
				"data":       data,
				"updated_at": now,
				"expires_at": expires,
			},
			"$setOnInsert": bson.M{"created_at": now},
		},
		options.Update().SetUpsert(true),
	)
	return err
}
