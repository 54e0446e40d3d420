package store

import (
	"context"
	"time"

	"github.com/dkeye/farmrelay/internal/core"
	"github.com/dkeye/farmrelay/internal/domain"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	hostsCollection    = "hosts"
	printersCollection = "printers"
)

// MongoStore persists hosts and printers in MongoDB.
type MongoStore struct {
	client   *mongo.Client
	hosts    *mongo.Collection
	printers *mongo.Collection
}

var _ core.Store = (*MongoStore)(nil)

func clientOptions(opts Options) (*options.ClientOptions, error) {
	if opts.MongoURI == "" {
		return nil, errors.New("mongo uri is required")
	}
	co := options.Client().ApplyURI(opts.MongoURI)
	if opts.MaxPoolSize > 0 {
		co.SetMaxPoolSize(opts.MaxPoolSize)
	}
	return co, nil
}

// OpenMongo connects, retrying up to opts.MaxRetry times, and makes sure
// the key indexes exist.
func OpenMongo(ctx context.Context, opts Options) (*MongoStore, error) {
	co, err := clientOptions(opts)
	if err != nil {
		return nil, err
	}
	if opts.MongoDatabase == "" {
		opts.MongoDatabase = "farmcontrol"
	}
	attempts := opts.MaxRetry
	if attempts <= 0 {
		attempts = 1
	}

	cli, err := retry(ctx, attempts, opts.RetryDelay, func() (*mongo.Client, error) {
		return connectMongo(ctx, co)
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect to mongo")
	}

	db := cli.Database(opts.MongoDatabase)
	s := &MongoStore{
		client:   cli,
		hosts:    db.Collection(hostsCollection),
		printers: db.Collection(printersCollection),
	}
	s.ensureIndexes(ctx)
	log.Info().Str("module", "store.mongo").Str("database", opts.MongoDatabase).Msg("connected to mongo")
	return s, nil
}

// retry calls connect up to attempts times, sleeping delay between tries
// but not after the last one.
func retry[T any](ctx context.Context, attempts int, delay time.Duration, connect func() (T, error)) (T, error) {
	var (
		v   T
		err error
	)
	for i := 0; i < attempts; i++ {
		v, err = connect()
		if err == nil {
			return v, nil
		}
		log.Warn().Err(err).Str("module", "store.mongo").Int("attempt", i+1).Int("of", attempts).Msg("mongo connect failed")
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return v, ctx.Err()
		case <-time.After(delay):
		}
	}
	return v, err
}

func connectMongo(ctx context.Context, co *options.ClientOptions) (*mongo.Client, error) {
	cli, err := mongo.Connect(ctx, co)
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(ctx)
		return nil, err
	}
	return cli, nil
}

// ensureIndexes is best effort: existing duplicate data must not keep the
// relay from starting.
func (s *MongoStore) ensureIndexes(ctx context.Context) {
	unique := options.Index().SetUnique(true)
	if _, err := s.printers.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "remoteAddress", Value: 1}}, Options: unique}); err != nil {
		log.Warn().Err(err).Str("module", "store.mongo").Msg("printers remoteAddress index")
	}
	if _, err := s.printers.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "hostId", Value: 1}}}); err != nil {
		log.Warn().Err(err).Str("module", "store.mongo").Msg("printers hostId index")
	}
	if _, err := s.hosts.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "hostId", Value: 1}}, Options: unique}); err != nil {
		log.Warn().Err(err).Str("module", "store.mongo").Msg("hosts hostId index")
	}
}

func (s *MongoStore) UpsertHost(ctx context.Context, h domain.Host) error {
	_, err := s.hosts.ReplaceOne(ctx, bson.M{"hostId": h.HostID}, h, options.Replace().SetUpsert(true))
	return errors.Wrapf(err, "upsert host %s", h.HostID)
}

func (s *MongoStore) DeleteHost(ctx context.Context, hostID string) (bool, error) {
	res, err := s.hosts.DeleteOne(ctx, bson.M{"hostId": hostID})
	if err != nil {
		return false, errors.Wrapf(err, "delete host %s", hostID)
	}
	return res.DeletedCount > 0, nil
}

func (s *MongoStore) ClearHosts(ctx context.Context) (int64, error) {
	res, err := s.hosts.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, errors.Wrap(err, "clear hosts")
	}
	return res.DeletedCount, nil
}

func (s *MongoStore) FindPrinter(ctx context.Context, remoteAddress string) (domain.Printer, error) {
	var p domain.Printer
	err := s.printers.FindOne(ctx, bson.M{"remoteAddress": remoteAddress}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Printer{}, core.ErrNotFound
	}
	if err != nil {
		return domain.Printer{}, errors.Wrapf(err, "find printer %s", remoteAddress)
	}
	return p, nil
}

func (s *MongoStore) InsertPrinter(ctx context.Context, p domain.Printer) error {
	_, err := s.printers.InsertOne(ctx, p)
	if mongo.IsDuplicateKeyError(err) {
		return errors.Wrapf(ErrDuplicatePrinter, "insert printer %s", p.RemoteAddress)
	}
	return errors.Wrapf(err, "insert printer %s", p.RemoteAddress)
}

func (s *MongoStore) SetPresence(ctx context.Context, remoteAddress string, pr domain.Presence) error {
	return s.set(ctx, remoteAddress, bson.M{
		"hostId":      pr.HostID,
		"online":      pr.Online,
		"status":      pr.Status,
		"connectedAt": pr.ConnectedAt,
	})
}

func (s *MongoStore) SetStatus(ctx context.Context, remoteAddress string, st domain.Status) error {
	return s.set(ctx, remoteAddress, bson.M{"status": st})
}

func (s *MongoStore) set(ctx context.Context, remoteAddress string, fields bson.M) error {
	res, err := s.printers.UpdateOne(ctx, bson.M{"remoteAddress": remoteAddress}, bson.M{"$set": fields})
	if err != nil {
		return errors.Wrapf(err, "update printer %s", remoteAddress)
	}
	if res.MatchedCount == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *MongoStore) PrintersByHost(ctx context.Context, hostID string) ([]domain.Printer, error) {
	cur, err := s.printers.Find(ctx, bson.M{"hostId": hostID})
	if err != nil {
		return nil, errors.Wrapf(err, "list printers of %s", hostID)
	}
	var out []domain.Printer
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrapf(err, "decode printers of %s", hostID)
	}
	return out, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
