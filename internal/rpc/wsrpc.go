package rpc

import (
	"encoding/json"
	"sync"

	"github.com/iqbalbaharum/go-pool-sniper/internal/generators"
	"github.com/iqbalbaharum/go-pool-sniper/internal/types"
	"go.uber.org/zap"
)

type SlotNotification struct {
	Slot   uint64
	Parent uint64
	Root   uint64
}

// WsRpc multiplexes one websocket connection across slot and log
// subscriptions and derives reorg notices from slot regressions.
type WsRpc struct {
	wsClient *generators.WSClient
	logger   *zap.Logger

	mu        sync.Mutex
	startOnce sync.Once
	nextID    int
	pending   map[int]string    // request id -> mentioned program
	active    map[uint64]string // subscription id -> mentioned program
	slotSubs  []chan<- SlotNotification
	logSubs   []chan<- types.LogEvent
	reorgSubs []chan<- types.ReorgNotice
	lastSlot  uint64
}

func NewWsRpc(wsUrl string, logger *zap.Logger) (*WsRpc, error) {
	wsClient, err := generators.NewWSClient(wsUrl, "")
	if err != nil {
		return nil, err
	}

	return &WsRpc{
		wsClient: wsClient,
		logger:   logger,
		nextID:   1,
		pending:  make(map[int]string),
		active:   make(map[uint64]string),
	}, nil
}

func (w *WsRpc) Close() error {
	return w.wsClient.Close()
}

// SubscribeToSlot streams slot notifications into slotChan.
func (w *WsRpc) SubscribeToSlot(slotChan chan<- SlotNotification) error {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.slotSubs = append(w.slotSubs, slotChan)
	w.mu.Unlock()

	request := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "slotSubscribe",
	}
	if err := w.send(request); err != nil {
		return err
	}

	w.start()
	return nil
}

// SubscribeToLogs streams confirmed log events mentioning programID into
// logChan. Failed transactions are delivered too, flagged, so consumers can
// reconcile signatures they sent.
func (w *WsRpc) SubscribeToLogs(programID string, logChan chan<- types.LogEvent) error {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.pending[id] = programID
	w.logSubs = append(w.logSubs, logChan)
	w.mu.Unlock()

	request := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "logsSubscribe",
		"params": []interface{}{
			map[string]interface{}{"mentions": []string{programID}},
			map[string]interface{}{"commitment": "confirmed"},
		},
	}
	if err := w.send(request); err != nil {
		return err
	}

	w.start()
	return nil
}

// SubscribeReorgs emits a notice whenever the slot stream moves backwards,
// which is the observable symptom of the node switching forks.
func (w *WsRpc) SubscribeReorgs(reorgChan chan<- types.ReorgNotice) error {
	w.mu.Lock()
	w.reorgSubs = append(w.reorgSubs, reorgChan)
	alreadyStreaming := len(w.slotSubs) > 0
	w.mu.Unlock()

	if alreadyStreaming {
		return nil
	}

	sink := make(chan SlotNotification, 64)
	go func() {
		for range sink {
		}
	}()
	return w.SubscribeToSlot(sink)
}

func (w *WsRpc) send(request map[string]interface{}) error {
	requestData, err := json.Marshal(request)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.wsClient.SendMessage(string(requestData))
}

func (w *WsRpc) start() {
	w.startOnce.Do(func() {
		messageChan := make(chan []byte, 256)
		go w.wsClient.ReadMessages(messageChan)
		go w.dispatch(messageChan)
	})
}

type wsNotification struct {
	ID     *int            `json:"id"`
	Result json.RawMessage `json:"result"`
	Method string          `json:"method"`
	Params *struct {
		Subscription uint64          `json:"subscription"`
		Result       json.RawMessage `json:"result"`
	} `json:"params"`
}

type slotResult struct {
	Slot   uint64 `json:"slot"`
	Parent uint64 `json:"parent"`
	Root   uint64 `json:"root"`
}

type logsResult struct {
	Context struct {
		Slot uint64 `json:"slot"`
	} `json:"context"`
	Value struct {
		Signature string          `json:"signature"`
		Err       json.RawMessage `json:"err"`
		Logs      []string        `json:"logs"`
	} `json:"value"`
}

func (w *WsRpc) dispatch(messageChan <-chan []byte) {
	for message := range messageChan {
		var n wsNotification
		if err := json.Unmarshal(message, &n); err != nil {
			w.logger.Warn("ws: undecodable frame", zap.Error(err))
			continue
		}

		// Subscribe confirmation: bind the subscription id to the
		// program the request asked for.
		if n.ID != nil && len(n.Result) > 0 {
			var subID uint64
			if err := json.Unmarshal(n.Result, &subID); err == nil {
				w.mu.Lock()
				if program, ok := w.pending[*n.ID]; ok {
					w.active[subID] = program
					delete(w.pending, *n.ID)
				}
				w.mu.Unlock()
			}
			continue
		}

		if n.Params == nil {
			continue
		}

		switch n.Method {
		case "slotNotification":
			var result slotResult
			if err := json.Unmarshal(n.Params.Result, &result); err != nil {
				continue
			}
			w.handleSlot(result)
		case "logsNotification":
			var result logsResult
			if err := json.Unmarshal(n.Params.Result, &result); err != nil {
				continue
			}
			w.handleLogs(n.Params.Subscription, result)
		}
	}
}

func (w *WsRpc) handleSlot(result slotResult) {
	w.mu.Lock()
	var notice *types.ReorgNotice
	if w.lastSlot != 0 && result.Slot < w.lastSlot {
		notice = &types.ReorgNotice{FromSlot: result.Slot, ToSlot: w.lastSlot}
	}
	w.lastSlot = result.Slot
	slotSubs := append([]chan<- SlotNotification(nil), w.slotSubs...)
	reorgSubs := append([]chan<- types.ReorgNotice(nil), w.reorgSubs...)
	w.mu.Unlock()

	notification := SlotNotification{
		Slot:   result.Slot,
		Parent: result.Parent,
		Root:   result.Root,
	}
	for _, ch := range slotSubs {
		select {
		case ch <- notification:
		default:
		}
	}

	if notice != nil {
		w.logger.Warn("ws: slot regression",
			zap.Uint64("from", notice.FromSlot),
			zap.Uint64("to", notice.ToSlot),
		)
		for _, ch := range reorgSubs {
			select {
			case ch <- *notice:
			default:
			}
		}
	}
}

func (w *WsRpc) handleLogs(subscription uint64, result logsResult) {
	w.mu.Lock()
	program := w.active[subscription]
	logSubs := append([]chan<- types.LogEvent(nil), w.logSubs...)
	w.mu.Unlock()

	event := types.LogEvent{
		Signature: result.Value.Signature,
		ProgramID: program,
		Slot:      result.Context.Slot,
		Failed:    len(result.Value.Err) > 0 && string(result.Value.Err) != "null",
	}
	for _, ch := range logSubs {
		select {
		case ch <- event:
		default:
		}
	}
}
