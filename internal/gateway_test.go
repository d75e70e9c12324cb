package internal

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"wxpay/config"
	"wxpay/entity"
	"wxpay/services"
)

type exchange struct {
	path    string
	request entity.Parameters
}

// fakeGateway answers signed XML requests the way the payment platform does.
type fakeGateway struct {
	t       *testing.T
	server  *httptest.Server
	respond func(path string, request entity.Parameters) []byte

	mu        sync.Mutex
	exchanges []exchange
}

func newFakeGateway(t *testing.T, respond func(path string, request entity.Parameters) []byte) *fakeGateway {
	g := &fakeGateway{t: t, respond: respond}
	g.server = httptest.NewServer(http.HandlerFunc(g.serve))
	t.Cleanup(g.server.Close)
	return g
}

func (g *fakeGateway) serve(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		g.t.Errorf("read request: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	request, err := DecodeXML(body)
	if err != nil {
		g.t.Errorf("decode request: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	g.mu.Lock()
	g.exchanges = append(g.exchanges, exchange{path: r.URL.Path, request: request})
	g.mu.Unlock()

	if err = Verify(testMerchant, request); err != nil {
		_, _ = w.Write(EncodeXML(entity.Parameters{"return_code": "FAIL", "return_msg": "签名错误"}))
		return
	}
	response := g.respond(r.URL.Path, request)
	if response == nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	_, _ = w.Write(response)
}

func (g *fakeGateway) last() exchange {
	g.mu.Lock()
	defer g.mu.Unlock()
	require.NotEmpty(g.t, g.exchanges)
	return g.exchanges[len(g.exchanges)-1]
}

func (g *fakeGateway) config() *config.Config {
	return testConfig(g.server.URL)
}

func (g *fakeGateway) client() *Client {
	return NewClient(g.config()).WithRetryCount(0)
}

func testConfig(apiUrl string) *config.Config {
	conf := &config.Config{}
	conf.App.Id = testApp.Id
	conf.Merchant.Id = testMerchant.Id
	conf.Merchant.SignKey = testMerchant.SignKey
	conf.Merchant.NotifyUrl = "http://wx.domain.com/weixin/pay/main"
	conf.Merchant.TradeType = "APP"
	conf.Merchant.ApiUrl = apiUrl
	return conf
}

// signedResponse builds a successful, signed gateway answer.
func signedResponse(extra entity.Parameters) []byte {
	response := entity.Parameters{
		"return_code": "SUCCESS",
		"return_msg":  "OK",
		"appid":       testApp.Id,
		"mch_id":      testMerchant.Id,
		"nonce_str":   NonceStr(),
		"result_code": "SUCCESS",
	}
	for k, v := range extra {
		response[k] = v
	}
	return EncodeXML(SignParameters(testMerchant, response))
}

func paidNotification(outTradeNo, transactionId string) entity.Parameters {
	return SignParameters(testMerchant, entity.Parameters{
		"return_code":    "SUCCESS",
		"appid":          testApp.Id,
		"mch_id":         testMerchant.Id,
		"nonce_str":      NonceStr(),
		"result_code":    "SUCCESS",
		"openid":         "oUpF8uMuAJO_M2pxb1Q9zNjWeS6o",
		"trade_type":     "APP",
		"bank_type":      "CMC",
		"total_fee":      "100",
		"cash_fee":       "100",
		"transaction_id": transactionId,
		"out_trade_no":   outTradeNo,
		"time_end":       "20141030133525",
	})
}

type memoryDatabase struct {
	mu      sync.Mutex
	orders  map[string]*entity.PaymentOrder
	results []*entity.PaymentResult
	logs    []services.Data

	// failResults is the number of SavePaymentResult calls that fail
	failResults int
	failReads   bool
}

var _ services.Database = (*memoryDatabase)(nil)

func newMemoryDatabase() *memoryDatabase {
	return &memoryDatabase{orders: map[string]*entity.PaymentOrder{}}
}

func (m *memoryDatabase) WriteLogMessage(_ context.Context, data services.Data) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, data)
	return nil
}

func (m *memoryDatabase) SavePaymentOrder(_ context.Context, order *entity.PaymentOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.OutTradeNo] = order
	return nil
}

func (m *memoryDatabase) GetPaymentOrder(_ context.Context, outTradeNo string) (*entity.PaymentOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failReads {
		return nil, errors.New("server selection timeout")
	}
	return m.orders[outTradeNo], nil
}

func (m *memoryDatabase) SavePaymentResult(_ context.Context, result *entity.PaymentResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failResults > 0 {
		m.failResults--
		return errors.New("server selection timeout")
	}
	m.results = append(m.results, result)
	return nil
}

func (m *memoryDatabase) resultCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.results)
}
