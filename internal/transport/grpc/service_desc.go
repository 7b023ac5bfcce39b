package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const (
	schedulingServiceName   = "bookly.v1.SchedulingService"
	appointmentsServiceName = "bookly.v1.AppointmentsService"
)

// unary builds a method descriptor that decodes Req, runs it through the
// server's interceptor chain and calls h on the registered implementation.
func unary[S any, Req any, Resp any](service, method string, h func(S, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + service + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return h(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return h(srv.(S), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// SchedulingService is the engine surface: booking decisions, waitlists,
// class occurrences and seats.
type SchedulingService interface {
	ResolveBooking(context.Context, *ResolveBookingRequest) (*ResolveBookingResponse, error)
	CheckCapacity(context.Context, *CheckCapacityRequest) (*CheckCapacityResponse, error)
	AvailabilityWindows(context.Context, *AvailabilityWindowsRequest) (*AvailabilityWindowsResponse, error)
	JoinWaitlist(context.Context, *JoinWaitlistRequest) (*WaitlistEntryResponse, error)
	PromoteWaitlist(context.Context, *PromoteWaitlistRequest) (*WaitlistEntryResponse, error)
	RemoveWaitlistEntry(context.Context, *RemoveWaitlistEntryRequest) (*WaitlistEntryResponse, error)
	GenerateOccurrence(context.Context, *GenerateOccurrenceRequest) (*OccurrenceResponse, error)
	GenerateOccurrenceSeries(context.Context, *GenerateOccurrenceSeriesRequest) (*OccurrencesResponse, error)
	ReserveSeat(context.Context, *OccurrenceSeatRequest) (*OccurrenceResponse, error)
	ReleaseSeat(context.Context, *OccurrenceSeatRequest) (*OccurrenceResponse, error)
}

type AppointmentsService interface {
	BookAppointment(context.Context, *BookAppointmentRequest) (*AppointmentResponse, error)
	CancelAppointment(context.Context, *CancelAppointmentRequest) (*AppointmentResponse, error)
	ListAppointments(context.Context, *ListAppointmentsRequest) (*ListAppointmentsResponse, error)
}

var SchedulingServiceDesc = grpc.ServiceDesc{
	ServiceName: schedulingServiceName,
	HandlerType: (*SchedulingService)(nil),
	Methods: []grpc.MethodDesc{
		unary(schedulingServiceName, "ResolveBooking", SchedulingService.ResolveBooking),
		unary(schedulingServiceName, "CheckCapacity", SchedulingService.CheckCapacity),
		unary(schedulingServiceName, "AvailabilityWindows", SchedulingService.AvailabilityWindows),
		unary(schedulingServiceName, "JoinWaitlist", SchedulingService.JoinWaitlist),
		unary(schedulingServiceName, "PromoteWaitlist", SchedulingService.PromoteWaitlist),
		unary(schedulingServiceName, "RemoveWaitlistEntry", SchedulingService.RemoveWaitlistEntry),
		unary(schedulingServiceName, "GenerateOccurrence", SchedulingService.GenerateOccurrence),
		unary(schedulingServiceName, "GenerateOccurrenceSeries", SchedulingService.GenerateOccurrenceSeries),
		unary(schedulingServiceName, "ReserveSeat", SchedulingService.ReserveSeat),
		unary(schedulingServiceName, "ReleaseSeat", SchedulingService.ReleaseSeat),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bookly/v1/scheduling",
}

var AppointmentsServiceDesc = grpc.ServiceDesc{
	ServiceName: appointmentsServiceName,
	HandlerType: (*AppointmentsService)(nil),
	Methods: []grpc.MethodDesc{
		unary(appointmentsServiceName, "BookAppointment", AppointmentsService.BookAppointment),
		unary(appointmentsServiceName, "CancelAppointment", AppointmentsService.CancelAppointment),
		unary(appointmentsServiceName, "ListAppointments", AppointmentsService.ListAppointments),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bookly/v1/appointments",
}

func RegisterSchedulingService(r grpc.ServiceRegistrar, srv SchedulingService) {
	r.RegisterService(&SchedulingServiceDesc, srv)
}

func RegisterAppointmentsService(r grpc.ServiceRegistrar, srv AppointmentsService) {
	r.RegisterService(&AppointmentsServiceDesc, srv)
}
