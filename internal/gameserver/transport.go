package gameserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "rpcombat.v1.CombatService"

// CombatServiceServer is the server API of the combat service. Every
// request and response is a google.protobuf.Struct.
type CombatServiceServer interface {
	ActivateAbility(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ProcessTurn(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EndScene(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCharacter(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func unaryHandler(method string, call func(CombatServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + ServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(CombatServiceServer)
		if interceptor == nil {
			return call(s, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(s, ctx, req.(*structpb.Struct))
		})
	}
}

// CombatServiceDesc describes the combat service for grpc.Server.RegisterService.
var CombatServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CombatServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ActivateAbility", Handler: unaryHandler("ActivateAbility", CombatServiceServer.ActivateAbility)},
		{MethodName: "ProcessTurn", Handler: unaryHandler("ProcessTurn", CombatServiceServer.ProcessTurn)},
		{MethodName: "EndScene", Handler: unaryHandler("EndScene", CombatServiceServer.EndScene)},
		{MethodName: "GetCharacter", Handler: unaryHandler("GetCharacter", CombatServiceServer.GetCharacter)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rpcombat/v1/combat.proto",
}

// RegisterCombatServiceServer registers srv on s.
func RegisterCombatServiceServer(s grpc.ServiceRegistrar, srv CombatServiceServer) {
	s.RegisterService(&CombatServiceDesc, srv)
}

// CombatClient calls the combat service over conn.
type CombatClient struct {
	cc grpc.ClientConnInterface
}

// NewCombatClient creates a CombatClient.
func NewCombatClient(cc grpc.ClientConnInterface) *CombatClient {
	return &CombatClient{cc: cc}
}

func (c *CombatClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ActivateAbility calls the ActivateAbility RPC.
func (c *CombatClient) ActivateAbility(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ActivateAbility", in, opts...)
}

// ProcessTurn calls the ProcessTurn RPC.
func (c *CombatClient) ProcessTurn(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ProcessTurn", in, opts...)
}

// EndScene calls the EndScene RPC.
func (c *CombatClient) EndScene(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "EndScene", in, opts...)
}

// GetCharacter calls the GetCharacter RPC.
func (c *CombatClient) GetCharacter(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetCharacter", in, opts...)
}

// CombatServer adapts a Service to CombatServiceServer.
type CombatServer struct {
	svc *Service
}

// NewCombatServer creates a CombatServer over svc.
func NewCombatServer(svc *Service) *CombatServer {
	return &CombatServer{svc: svc}
}

var _ CombatServiceServer = (*CombatServer)(nil)

// ActivateAbility decodes {ability_id, mode, caster_id, target_id, nearby}
// and returns the activation breakdown.
func (s *CombatServer) ActivateAbility(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decodeActivate(in)
	if err != nil {
		return nil, toStatus(err)
	}
	act, err := s.svc.ActivateAbility(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(activationToMap(act))
}

// ProcessTurn decodes {character_id} and returns the turn result.
func (s *CombatServer) ProcessTurn(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := stringField(in, "character_id")
	if err != nil {
		return nil, toStatus(err)
	}
	res, err := s.svc.ProcessTurn(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(turnToMap(res))
}

// EndScene decodes {character_ids} and returns each character's removed
// Scene effects.
func (s *CombatServer) EndScene(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	ids, err := stringListField(in, "character_ids")
	if err != nil {
		return nil, toStatus(err)
	}
	ends, err := s.svc.EndScene(ctx, ids)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(sceneEndsToMap(ends))
}

// GetCharacter decodes {character_id} and returns the snapshot.
func (s *CombatServer) GetCharacter(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := stringField(in, "character_id")
	if err != nil {
		return nil, toStatus(err)
	}
	st, err := s.svc.GetCharacter(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(stateToMap(st))
}

func reply(m map[string]any) (*structpb.Struct, error) {
	out, err := encodeStruct(m)
	if err != nil {
		return nil, toStatus(err)
	}
	return out, nil
}
