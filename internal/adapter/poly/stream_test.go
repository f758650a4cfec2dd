package poly

import (
	"encoding/json"
	"testing"

	"github.com/datavents/datavents/internal/book"
	"github.com/datavents/datavents/internal/schema"
)

func TestSubscribeFrames(t *testing.T) {
	d := NewDriver()
	frames := d.SubscribeFrames([]string{"111", "222"})
	if len(frames) != 1 {
		t.Fatalf("frames = %d, want 1", len(frames))
	}

	var msg struct {
		Type      string   `json:"type"`
		AssetsIDs []string `json:"assets_ids"`
	}
	if err := json.Unmarshal(frames[0], &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != "market" || len(msg.AssetsIDs) != 2 {
		t.Fatalf("msg = %+v", msg)
	}

	if got := d.UnsubscribeFrames([]string{"111"}); got != nil {
		t.Fatalf("UnsubscribeFrames = %v, want nil", got)
	}
}

func TestDecodeBook(t *testing.T) {
	d := NewDriver()
	raw := []byte(`{"event_type":"book","asset_id":"111","bids":[{"price":"0.42","size":"120"},{"price":"bad","size":"1"}],"asks":[{"price":"0.45","size":"90"}]}`)

	frames, err := d.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(frames) != 1 || frames[0].Kind != schema.KindOrderbook || frames[0].MarketRef != "111" {
		t.Fatalf("frames = %+v", frames)
	}

	snap, ok := frames[0].Book.(book.Snapshot)
	if !ok {
		t.Fatalf("book message = %T", frames[0].Book)
	}
	// The unparseable level is skipped.
	if len(snap.Bids) != 1 || snap.Bids[0].Price != 0.42 || snap.Bids[0].Size != 120 {
		t.Fatalf("bids = %+v", snap.Bids)
	}
	if len(snap.Asks) != 1 || snap.Asks[0].Price != 0.45 {
		t.Fatalf("asks = %+v", snap.Asks)
	}
}

func TestDecodeBookNormalizesPrices(t *testing.T) {
	d := NewDriver()
	raw := []byte(`{"event_type":"book","asset_id":"111","bids":[{"price":"42","size":"10"},{"price":"NaN","size":"5"}]}`)

	frames, err := d.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	snap := frames[0].Book.(book.Snapshot)
	// An out-of-range price goes through the shared heuristic; a
	// non-finite one is dropped with its level.
	if len(snap.Bids) != 1 || snap.Bids[0].Price != 0.42 {
		t.Fatalf("bids = %+v, want one level at 0.42", snap.Bids)
	}
}

func TestDecodePriceChangeNormalizesPrices(t *testing.T) {
	d := NewDriver()
	raw := []byte(`{"event_type":"price_change","asset_id":"111","price_changes":[
		{"asset_id":"111","price":"42","size":"50","side":"BUY"},
		{"asset_id":"111","price":"NaN","size":"5","side":"BUY"}
	]}`)

	frames, err := d.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("frames = %d, want 2", len(frames))
	}
	if _, ok := frames[0].Book.(book.Unrecognized); !ok {
		t.Fatalf("non-finite price = %T, want Unrecognized", frames[0].Book)
	}
	deltas := frames[1].Book.(book.Deltas)
	if len(deltas) != 1 || deltas[0].Price != 0.42 {
		t.Fatalf("deltas = %+v, want one at 0.42", deltas)
	}
}

func TestDecodeArrayFraming(t *testing.T) {
	d := NewDriver()
	raw := []byte(`[{"event_type":"book","asset_id":"111","bids":[{"price":"0.42","size":"1"}]},{"event_type":"book","asset_id":"222","asks":[{"price":"0.6","size":"2"}]}]`)

	frames, err := d.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("frames = %d, want 2", len(frames))
	}
	if frames[0].MarketRef != "111" || frames[1].MarketRef != "222" {
		t.Fatalf("refs = %q/%q", frames[0].MarketRef, frames[1].MarketRef)
	}
}

func TestDecodePriceChangesGroupsByAsset(t *testing.T) {
	d := NewDriver()
	raw := []byte(`{"event_type":"price_change","asset_id":"111","price_changes":[
		{"asset_id":"111","price":"0.42","size":"50","side":"BUY"},
		{"asset_id":"222","price":"0.60","size":"10","side":"SELL"},
		{"asset_id":"111","price":"0.43","size":"0","side":"BUY"}
	]}`)

	frames, err := d.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("frames = %d, want one per asset", len(frames))
	}

	first, ok := frames[0].Book.(book.Deltas)
	if !ok || frames[0].MarketRef != "111" {
		t.Fatalf("frame[0] = %+v", frames[0])
	}
	if len(first) != 2 {
		t.Fatalf("asset 111 deltas = %d, want 2", len(first))
	}
	// CLOB sizes are absolute replacements.
	if first[0].Size == nil || *first[0].Size != 50 || first[0].Change != nil {
		t.Fatalf("delta = %+v, want absolute size 50", first[0])
	}
	if *first[1].Size != 0 {
		t.Fatalf("delta = %+v, want absolute size 0 (removal)", first[1])
	}

	second := frames[1].Book.(book.Deltas)
	if frames[1].MarketRef != "222" || second[0].Side != book.Ask {
		t.Fatalf("frame[1] = %+v", frames[1])
	}
}

func TestDecodePriceChangeUnknownSide(t *testing.T) {
	d := NewDriver()
	raw := []byte(`{"event_type":"price_change","asset_id":"111","price_changes":[
		{"asset_id":"111","price":"0.42","size":"50","side":"HOLD"}
	]}`)

	frames, err := d.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("frames = %d, want 1", len(frames))
	}
	if _, ok := frames[0].Book.(book.Unrecognized); !ok {
		t.Fatalf("book message = %T, want Unrecognized", frames[0].Book)
	}
}

func TestDecodeLastTrade(t *testing.T) {
	d := NewDriver()
	raw := []byte(`{"event_type":"last_trade_price","asset_id":"111","price":"0.47","size":"25","side":"BUY"}`)

	frames, err := d.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	f := frames[0]
	if f.Kind != schema.KindTrade || f.MarketRef != "111" {
		t.Fatalf("frame = %+v", f)
	}
	tr := f.Payload.(TradePayload)
	if tr.Price == nil || *tr.Price != 0.47 || tr.Size == nil || *tr.Size != 25 {
		t.Fatalf("trade = %+v", tr)
	}
}

func TestDecodeUnknownEventTypeIsRaw(t *testing.T) {
	d := NewDriver()
	frames, err := d.Decode([]byte(`{"event_type":"tick_size_change","asset_id":"111"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(frames) != 1 || frames[0].Kind != schema.KindRaw {
		t.Fatalf("frames = %+v", frames)
	}
}

func TestDecodeMalformed(t *testing.T) {
	d := NewDriver()
	_, err := d.Decode([]byte(`[{"event_type":`))
	mp, ok := err.(*schema.MalformedPayloadError)
	if !ok {
		t.Fatalf("expected MalformedPayloadError, got %v", err)
	}
	if mp.Provider != schema.ProviderPolymarket {
		t.Fatalf("provider = %q", mp.Provider)
	}

	if frames, err := d.Decode([]byte("  ")); err != nil || frames != nil {
		t.Fatalf("blank frame: %v %v", frames, err)
	}
}
