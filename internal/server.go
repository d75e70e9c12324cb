package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"wxpay/config"
	"wxpay/entity"
	"wxpay/services"
)

const (
	createOrder   = "/order"
	queryOrder    = "/order/:out_trade_no"
	closeOrder    = "/order/:out_trade_no/close"
	prepayConfig  = "/prepay/:prepay_id"
	paymentNotify = "/notify"

	maxBodySize = 64 << 10
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	payments   services.Payments
	logger     services.LogHandler
}

func NewServer(conf *config.Config) *Server {

	server := Server{
		conf: conf,
	}

	// register itself as a router for httpServer handler
	router := httprouter.New()
	server.Register(router)
	server.httpServer = &http.Server{
		Handler: router,
	}

	return &server
}

func (s *Server) Register(router *httprouter.Router) {
	router.POST(createOrder, s.createOrder)
	router.GET(queryOrder, s.queryOrder)
	router.POST(closeOrder, s.closeOrder)
	router.GET(prepayConfig, s.prepay)
	router.POST(paymentNotify, s.paymentNotify)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) SetPaymentsService(payments services.Payments) {
	s.payments = payments
}

func (s *Server) SetLogger(logger services.LogHandler) {
	s.logger = logger
}

func (s *Server) Start() error {
	if s.conf == nil {
		return fmt.Errorf("configuration not loaded")
	}

	serverAddress := fmt.Sprintf("%s:%s", s.conf.Listen.BindIP, s.conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	if s.conf.Listen.TLS {
		s.logger.Info(fmt.Sprintf("starting https TLS on %s", serverAddress))
		err = s.httpServer.ServeTLS(listener, s.conf.Listen.CertFile, s.conf.Listen.KeyFile)
	} else {
		s.logger.Info(fmt.Sprintf("starting http on %s", serverAddress))
		err = s.httpServer.Serve(listener)
	}

	return err
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, reqID := requestContext(w, r)

	body, err := readBody(w, r)
	if err != nil {
		s.logger.Error(fmt.Sprintf("[%s] create order: read request body", reqID), err)
		w.WriteHeader(bodyErrorStatus(err, http.StatusBadRequest))
		return
	}

	var order entity.PaymentOrder
	if err = json.Unmarshal(body, &order); err != nil {
		s.logger.Warn(fmt.Sprintf("[%s] create order: decode request body: %v", reqID, err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if order.ClientIp == "" {
		order.ClientIp = clientIp(r)
	}

	s.logger.Info(fmt.Sprintf("[%s] processing request: create order %s, amount %d", reqID, order.OutTradeNo, order.TotalFee))
	prepay, err := s.payments.CreateOrder(ctx, &order)
	if err != nil {
		s.logger.Error(fmt.Sprintf("[%s] create order %s", reqID, order.OutTradeNo), err)
		w.WriteHeader(errorStatus(err))
		return
	}

	s.writeJSON(w, reqID, prepay)
}

func (s *Server) queryOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, reqID := requestContext(w, r)

	outTradeNo := ps.ByName("out_trade_no")
	order, err := s.payments.QueryOrder(ctx, outTradeNo)
	if err != nil {
		s.logger.Error(fmt.Sprintf("[%s] query order %s", reqID, outTradeNo), err)
		w.WriteHeader(errorStatus(err))
		return
	}

	s.writeJSON(w, reqID, order)
}

func (s *Server) closeOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, reqID := requestContext(w, r)

	outTradeNo := ps.ByName("out_trade_no")
	if err := s.payments.CloseOrder(ctx, outTradeNo); err != nil {
		s.logger.Error(fmt.Sprintf("[%s] close order %s", reqID, outTradeNo), err)
		w.WriteHeader(errorStatus(err))
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) prepay(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	_, reqID := requestContext(w, r)

	prepayId := ps.ByName("prepay_id")
	if prepayId == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.writeJSON(w, reqID, s.payments.Prepay(prepayId))
}

func (s *Server) paymentNotify(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, reqID := requestContext(w, r)

	body, err := readBody(w, r)
	if err != nil {
		s.logger.Error(fmt.Sprintf("[%s] payment notify: get body", reqID), err)
		w.WriteHeader(bodyErrorStatus(err, http.StatusInternalServerError))
		return
	}

	ack, err := s.payments.Notify(ctx, body)
	if err != nil {
		s.logger.Error(fmt.Sprintf("[%s] payment notify: process body", reqID), err)
	}
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(ack)
}

func (s *Server) writeJSON(w http.ResponseWriter, reqID string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error(fmt.Sprintf("[%s] encode response", reqID), err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
}

func bodyErrorStatus(err error, otherwise int) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return otherwise
}

// errorStatus maps rejected input to 400 and gateway failures to 502.
func errorStatus(err error) int {
	var berr *BusinessError
	if errors.As(err, &berr) && berr.Code == string(CodeInvalidRequest) {
		return http.StatusBadRequest
	}
	var verr *ValidationError
	var terr *TransportError
	if errors.As(err, &verr) || errors.As(err, &terr) || errors.As(err, &berr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func clientIp(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
