package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/timgluz/luftspiegel/decoder"
	"github.com/timgluz/luftspiegel/device"
	"github.com/timgluz/luftspiegel/measurement"
	"github.com/timgluz/luftspiegel/response"
	"github.com/timgluz/luftspiegel/task"
)

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFromError(err)
	if status >= http.StatusInternalServerError {
		s.Logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		s.Logger.Debug("Request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	response.RenderError(w, err, status)
}

func (s *Server) collectAdvertisement(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req advertisementRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.renderError(w, r, err)
		return
	}

	adv, err := req.advertisement()
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	snap, err := s.Collector.Collect(r.Context(), adv)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	if snap == nil {
		response.RenderJSON(w, response.NewAcceptedResponse(false, "advertisement ignored", nil))
		return
	}
	response.RenderJSONStatus(w, http.StatusCreated, response.NewAcceptedResponse(true, "", snap))
}

func (s *Server) listSnapshots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	page := response.NewPaginationFromRequest(r)

	collection, err := s.Snapshots.List(r.Context(), page.Offset, page.Limit)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	response.RenderJSON(w, collection)
}

func (s *Server) listDevices(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	page := response.NewPaginationFromRequest(r)

	collection, err := s.Devices.List(r.Context(), page.Offset, page.Limit)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	response.RenderJSON(w, collection)
}

func (s *Server) getDevice(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	address, err := measurement.ParseAddress(ps.ByName("address"))
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	d, err := s.Devices.Get(r.Context(), address)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	response.RenderJSON(w, d)
}

func (s *Server) renameDevice(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req renameRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.renderError(w, r, err)
		return
	}

	d, err := device.New(ps.ByName("address"), req.Name)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	if err := s.Devices.Rename(r.Context(), d); err != nil {
		s.renderError(w, r, err)
		return
	}

	s.Logger.Info("Device renamed", "device", d.Address, "name", d.Name)
	response.RenderJSON(w, d)
}

func (s *Server) deleteDevice(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := s.Remover.Run(r.Context(), ps.ByName("address")); err != nil {
		s.renderError(w, r, err)
		return
	}
	response.RenderNoContent(w)
}

func (s *Server) syncLog(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req logRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.renderError(w, r, err)
		return
	}

	var (
		report *task.SyncReport
		err    error
	)
	if len(req.Packets) > 0 {
		packets, perr := req.packets()
		if perr != nil {
			s.renderError(w, r, perr)
			return
		}

		sensor := req.Sensor
		if sensor == "" {
			sensor = decoder.SensorAll
		}
		report, err = s.Synchronizer.RunPackets(r.Context(), ps.ByName("address"), req.Name, sensor, packets)
	} else {
		report, err = s.Synchronizer.Run(r.Context(), ps.ByName("address"), req.Name, req.Records)
	}

	if err != nil {
		s.renderError(w, r, err)
		return
	}
	response.RenderJSON(w, report)
}

func (s *Server) syncStart(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	sensor := strings.TrimSpace(r.URL.Query().Get("sensor"))
	if sensor == "" {
		sensor = decoder.SensorAll
	}

	destination, err := decoder.LogDestination(sensor)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	address := ps.ByName("address")
	start, err := s.Synchronizer.StartTimestamp(r.Context(), address, sensor)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	canonical, _ := measurement.ParseAddress(address)
	response.RenderJSON(w, syncStartResponse{
		Device:  canonical,
		Sensor:  sensor,
		Start:   start,
		Request: fmt.Sprintf("%X", decoder.LogRequest(destination, measurement.CurrentEpoch(), start)),
	})
}

func (s *Server) getSnapshot(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	address, err := measurement.ParseAddress(ps.ByName("address"))
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	snap, err := s.Snapshots.Get(r.Context(), address)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	response.RenderJSON(w, snap)
}

func (s *Server) getSeries(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	channel, err := measurement.ParseChannel(ps.ByName("channel"))
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	period, err := periodFromRequest(r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	maxPoints, err := maxPointsFromRequest(r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	plot, err := s.SeriesBuilder.Build(r.Context(), task.SeriesRequest{
		Device:    ps.ByName("address"),
		Channel:   channel,
		Period:    period,
		MaxPoints: maxPoints,
	})
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	response.RenderJSON(w, plot)
}
