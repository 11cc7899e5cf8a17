// Command orders-import loads legacy order archives into the database.
//
// Archives are gzip-compressed JSONL files, one order document per line. The
// same order can appear in several archives, so import runs in two passes:
// pass 1 builds a bloom filter over the order numbers already in the database,
// pass 2 streams every archive concurrently and inserts the orders whose
// numbers the filter (confirmed by the unique index) has not seen yet.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/atelier-api/internal/domain/user"
	"github.com/xenking/atelier-api/internal/repository"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
	progressEvery = 10_000
)

// legacyOrder is one decoded archive line.
type legacyOrder struct {
	Number        string
	CustomerName  string
	CustomerEmail string
	Status        string
	Subtotal      decimal.Decimal
	Tax           decimal.Decimal
	Total         decimal.Decimal
	Items         []byte // raw JSON array, stored as-is
	CreatedAt     time.Time
}

const insertLegacyOrderSQL = `INSERT INTO orders
	(id, order_number, customer_id, items, subtotal, tax, total,
	 shipping_address, payment_info, status, communication, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, '{}', '{"method":"legacy","paymentStatus":"paid"}', $8, '[]', $9, $9)
	ON CONFLICT (order_number) DO NOTHING`

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing orders*.jsonl.gz archives")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("orders import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("orders import completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "orders*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "glob archives")
	}
	if len(files) == 0 {
		return errors.Errorf("no archives matching orders*.jsonl.gz in %s", dataDir)
	}

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	// Pass 1: seed the filter with every order number already stored.
	slog.Info("pass 1: loading existing order numbers")
	filter, err := loadExistingNumbers(ctx, pool)
	if err != nil {
		return errors.Wrap(err, "load existing order numbers")
	}

	// Pass 2: stream archives concurrently.
	slog.Info("pass 2: importing archives", slog.Int("files", len(files)))
	imp := &importer{
		pool:   pool,
		users:  repository.NewUserRepository(pool),
		filter: filter,
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, f := range files {
		g.Go(imp.importFile(ctx, f))
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("import summary",
		slog.Int64("imported", imp.imported.Load()),
		slog.Int64("skipped", imp.skipped.Load()),
	)
	return nil
}

func loadExistingNumbers(ctx context.Context, pool *pgxpool.Pool) (*bloom.BloomFilter, error) {
	filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)

	rows, err := pool.Query(ctx, `SELECT order_number FROM orders`)
	if err != nil {
		return nil, errors.Wrap(err, "query order numbers")
	}
	defer rows.Close()

	var count int
	for rows.Next() {
		var number string
		if err := rows.Scan(&number); err != nil {
			return nil, errors.Wrap(err, "scan order number")
		}
		filter.AddString(number)
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slog.Info("pass 1 complete", slog.Int("existing_orders", count))
	return filter, nil
}

type importer struct {
	pool  *pgxpool.Pool
	users *repository.UserRepository

	mu     sync.Mutex
	filter *bloom.BloomFilter

	imported atomic.Int64
	skipped  atomic.Int64
}

// seen marks number in the filter and reports whether it was possibly present
// already. False positives are acceptable: the unique index is the authority,
// and ON CONFLICT DO NOTHING makes a duplicate insert harmless.
func (im *importer) seen(number string) bool {
	im.mu.Lock()
	defer im.mu.Unlock()
	if im.filter.TestString(number) {
		return true
	}
	im.filter.AddString(number)
	return false
}

func (im *importer) importFile(ctx context.Context, path string) func() error {
	return func() error {
		var count uint64
		if err := streamGzLines(ctx, path, func(line []byte) error {
			count++
			if count%progressEvery == 0 {
				slog.Info("pass 2 progress", slog.String("file", filepath.Base(path)), slog.Uint64("lines", count))
			}
			return im.importLine(ctx, line)
		}); err != nil {
			return errors.Wrapf(err, "import %s", path)
		}

		slog.Info("pass 2 complete", slog.String("file", filepath.Base(path)), slog.Uint64("lines", count))
		return nil
	}
}

func (im *importer) importLine(ctx context.Context, line []byte) error {
	o, err := decodeLegacyOrder(line)
	if err != nil {
		return errors.Wrap(err, "decode order line")
	}
	if o.Number == "" {
		return errors.New("order line missing orderNumber")
	}

	if im.seen(o.Number) {
		im.skipped.Add(1)
		return nil
	}

	customerID, err := im.users.Upsert(ctx, &user.User{
		ID:    uuid.New().String(),
		Name:  o.CustomerName,
		Email: o.CustomerEmail,
		Role:  "customer",
	})
	if err != nil {
		return err
	}

	items := o.Items
	if len(items) == 0 {
		items = []byte(`[]`)
	}

	tag, err := im.pool.Exec(ctx, insertLegacyOrderSQL,
		uuid.New().String(), o.Number, customerID, items,
		o.Subtotal, o.Tax, o.Total, o.Status, o.CreatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "insert order %s", o.Number)
	}
	if tag.RowsAffected() == 0 {
		im.skipped.Add(1)
		return nil
	}

	im.imported.Add(1)
	return nil
}

// decodeLegacyOrder parses one archive line without building an intermediate
// map: fields are picked off the jx token stream and unknown keys skipped.
func decodeLegacyOrder(line []byte) (legacyOrder, error) {
	var o legacyOrder
	d := jx.DecodeBytes(line)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "orderNumber":
			v, err := d.Str()
			o.Number = v
			return err
		case "customerName":
			v, err := d.Str()
			o.CustomerName = v
			return err
		case "customerEmail":
			v, err := d.Str()
			o.CustomerEmail = v
			return err
		case "status":
			v, err := d.Str()
			o.Status = v
			return err
		case "subtotal":
			return decodeDecimal(d, &o.Subtotal)
		case "tax":
			return decodeDecimal(d, &o.Tax)
		case "total":
			return decodeDecimal(d, &o.Total)
		case "items":
			raw, err := d.Raw()
			o.Items = []byte(raw)
			return err
		case "createdAt":
			v, err := d.Str()
			if err != nil {
				return err
			}
			t, err := time.Parse(time.RFC3339, v)
			o.CreatedAt = t
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return legacyOrder{}, err
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	if o.Status == "" {
		o.Status = "completed"
	}
	return o, nil
}

func decodeDecimal(d *jx.Decoder, out *decimal.Decimal) error {
	n, err := d.Num()
	if err != nil {
		return err
	}
	v, err := decimal.NewFromString(n.String())
	if err != nil {
		return err
	}
	*out = v
	return nil
}

// streamGzLines opens a gzip-compressed file and calls fn for each line.
func streamGzLines(ctx context.Context, path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(scanner.Bytes()) == 0 {
			continue
		}
		if err := fn(scanner.Bytes()); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}
