package polymarket

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"argus/internal/adapters/config"
	"argus/internal/domain/trade"
	"argus/internal/metrics"
	"argus/pkg/logger"
	"argus/pkg/reconnect"
)

const writeTimeout = 10 * time.Second

// feedMessage is a CLOB market-channel event. Numeric fields arrive as
// strings on the wire.
type feedMessage struct {
	EventType string `json:"event_type"`
	AssetID   string `json:"asset_id"`
	Market    string `json:"market"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	Side      string `json:"side"`
	Timestamp string `json:"timestamp"` // epoch milliseconds
	TxHash    string `json:"transaction_hash"`
	Wallet    string `json:"proxy_wallet"`
}

type subscribeMessage struct {
	AssetIDs []string `json:"assets_ids"`
	Type     string   `json:"type"`
}

// Feed maintains a CLOB market-channel WebSocket subscription and emits raw
// trades on Out. Reconnects with exponential backoff; the channel stays open
// across reconnects so consumers never have to resubscribe.
type Feed struct {
	url      string
	out      chan trade.Raw
	assetIDs []string
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	conns    *reconnect.Manager
	log      *logger.Logger
}

// NewFeed creates a live trade feed subscribed to cfg.FeedAssetIDs.
func NewFeed(cfg config.DataAPIConfig) *Feed {
	log := logger.Get().With("component", "polymarket_feed")
	return &Feed{
		url:      cfg.WSSURL,
		out:      make(chan trade.Raw, 1024),
		assetIDs: cfg.FeedAssetIDs,
		stop:     make(chan struct{}),
		conns:    reconnect.NewManager(reconnect.Config{}, log),
		log:      log,
	}
}

// Out is the stream of raw trades received from the feed.
func (f *Feed) Out() <-chan trade.Raw {
	return f.out
}

// Start runs the connect/read/reconnect loop until ctx is cancelled or
// Stop is called.
func (f *Feed) Start(ctx context.Context) {
	f.wg.Add(1)
	go f.runLoop(ctx)
}

// Stop shuts the feed down and closes Out.
func (f *Feed) Stop() {
	f.stopOnce.Do(func() {
		close(f.stop)
	})
	f.wg.Wait()
	close(f.out)
}

func (f *Feed) runLoop(ctx context.Context) {
	defer f.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-f.stop:
			return
		default:
		}

		conn, err := f.connect(ctx)
		if err != nil {
			metrics.FeedReconnects.WithLabelValues("failed").Inc()
			delay := f.conns.RecordFailure()
			f.log.Warnw("feed connect failed", "error", err, "retry_in", delay)
			if !f.wait(ctx, delay) {
				return
			}
			continue
		}

		metrics.FeedReconnects.WithLabelValues("success").Inc()
		f.conns.RecordSuccess()
		f.log.Infow("feed connected", "url", f.url, "reconnects", f.conns.Reconnects())

		if err := f.readLoop(ctx, conn); err != nil {
			f.log.Warnw("feed read error", "error", err)
		}
		_ = conn.Close()
	}
}

func (f *Feed) connect(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, f.url, nil)
	if err != nil {
		return nil, err
	}

	sub := subscribeMessage{AssetIDs: f.assetIDs, Type: "market"}

	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(sub); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

func (f *Feed) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.stop:
			return nil
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(f.conns.HeartbeatTimeout()))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		f.conns.RecordMessage()
		f.handleMessage(data)
	}
}

func (f *Feed) handleMessage(data []byte) {
	var msg feedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		f.log.Debugw("feed message skipped", "error", err)
		return
	}
	if msg.EventType != "last_trade_price" {
		return
	}

	raw, ok := convertFeedMessage(msg)
	if !ok {
		return
	}

	select {
	case f.out <- raw:
	default:
		f.log.Warnw("feed channel full, trade dropped", "asset_id", msg.AssetID)
	}
}

// convertFeedMessage maps a wire event to the common raw-trade shape the
// pipeline normalizes. Unparseable numerics yield zero values and get
// rejected downstream with a reason counter rather than silently vanishing.
func convertFeedMessage(msg feedMessage) (trade.Raw, bool) {
	price, _ := strconv.ParseFloat(msg.Price, 64)
	size, _ := strconv.ParseFloat(msg.Size, 64)

	var ts int64
	if ms, err := strconv.ParseInt(msg.Timestamp, 10, 64); err == nil {
		ts = ms / 1000
	}

	return trade.Raw{
		ProxyWallet:     msg.Wallet,
		Asset:           msg.AssetID,
		ConditionID:     msg.Market,
		Side:            msg.Side,
		Price:           price,
		Size:            size,
		Timestamp:       ts,
		TransactionHash: msg.TxHash,
		Source:          trade.SourceFeed,
	}, true
}

func (f *Feed) wait(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-f.stop:
		return false
	case <-time.After(d):
		return true
	}
}
