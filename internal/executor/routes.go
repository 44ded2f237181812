package executor

import (
	"context"

	"github.com/rwaledger/pledge-core/internal/agreement"
	"github.com/rwaledger/pledge-core/internal/asset"
	"github.com/rwaledger/pledge-core/internal/assetledger"
	"github.com/rwaledger/pledge-core/internal/platform/protomux"
	"github.com/rwaledger/pledge-core/internal/registry"
)

// routes wires every mutating operation of both components. Read accessors
// are not routed; they are plain method calls with no transaction boundary.
func (e *Executor) routes(l *assetledger.Ledger, r *registry.Registry) {
	e.mux.Handle(protomux.TargetLedger, OpRegisterAsset,
		func(ctx context.Context, req *protomux.Request) error {
			var params RegisterAssetParams
			if err := decode(req.Params, &params); err != nil {
				return err
			}
			_, err := l.RegisterAsset(ctx, req.Caller, &asset.NewAsset{
				AssetID:       params.AssetID,
				AssetType:     params.AssetType,
				Description:   params.Description,
				OriginalValue: params.OriginalValue,
				Pledger:       params.Pledger,
			}, params.Beneficiary)
			return err
		})

	e.mux.Handle(protomux.TargetLedger, OpReleaseAsset,
		func(ctx context.Context, req *protomux.Request) error {
			var params ReleaseAssetParams
			if err := decode(req.Params, &params); err != nil {
				return err
			}
			return l.ReleaseAsset(ctx, req.Caller, params.AssetID, params.Holder, params.Tokens)
		})

	e.mux.Handle(protomux.TargetLedger, OpTransfer,
		func(ctx context.Context, req *protomux.Request) error {
			var params TransferParams
			if err := decode(req.Params, &params); err != nil {
				return err
			}
			return l.Transfer(ctx, req.Caller, params.To, params.Amount)
		})

	e.mux.Handle(protomux.TargetLedger, OpApprove,
		func(ctx context.Context, req *protomux.Request) error {
			var params ApproveParams
			if err := decode(req.Params, &params); err != nil {
				return err
			}
			return l.Approve(ctx, req.Caller, params.Spender, params.Amount)
		})

	e.mux.Handle(protomux.TargetLedger, OpTransferFrom,
		func(ctx context.Context, req *protomux.Request) error {
			var params TransferFromParams
			if err := decode(req.Params, &params); err != nil {
				return err
			}
			return l.TransferFrom(ctx, req.Caller, params.Owner, params.To, params.Amount)
		})

	e.mux.Handle(protomux.TargetLedger, OpSetDiscountRate,
		func(ctx context.Context, req *protomux.Request) error {
			var params SetRateParams
			if err := decode(req.Params, &params); err != nil {
				return err
			}
			return l.SetDiscountRate(ctx, req.Caller, params.Rate)
		})

	e.mux.Handle(protomux.TargetLedger, OpPause,
		func(ctx context.Context, req *protomux.Request) error {
			return l.Pause(ctx, req.Caller)
		})

	e.mux.Handle(protomux.TargetLedger, OpUnpause,
		func(ctx context.Context, req *protomux.Request) error {
			return l.Unpause(ctx, req.Caller)
		})

	e.mux.Handle(protomux.TargetLedger, OpGrantRole,
		func(ctx context.Context, req *protomux.Request) error {
			var params RoleParams
			if err := decode(req.Params, &params); err != nil {
				return err
			}
			role, err := decodeRole(params.Role)
			if err != nil {
				return err
			}
			return l.GrantRole(ctx, req.Caller, params.Target, role)
		})

	e.mux.Handle(protomux.TargetLedger, OpRevokeRole,
		func(ctx context.Context, req *protomux.Request) error {
			var params RoleParams
			if err := decode(req.Params, &params); err != nil {
				return err
			}
			role, err := decodeRole(params.Role)
			if err != nil {
				return err
			}
			return l.RevokeRole(ctx, req.Caller, params.Target, role)
		})

	e.mux.Handle(protomux.TargetRegistry, OpCreatePledge,
		func(ctx context.Context, req *protomux.Request) error {
			var params CreatePledgeParams
			if err := decode(req.Params, &params); err != nil {
				return err
			}
			return r.CreatePledge(ctx, req.Caller, &agreement.NewAgreement{
				AgreementID:   params.AgreementID,
				Client:        params.Client,
				AssetID:       params.AssetID,
				AssetType:     params.AssetType,
				Description:   params.Description,
				OriginalValue: params.OriginalValue,
				DocumentHash:  params.DocumentHash,
			})
		})

	e.mux.Handle(protomux.TargetRegistry, OpPayClient,
		func(ctx context.Context, req *protomux.Request) error {
			var params PayClientParams
			if err := decode(req.Params, &params); err != nil {
				return err
			}
			return r.PayClient(ctx, req.Caller, params.AgreementID)
		})

	e.mux.Handle(protomux.TargetRegistry, OpPurchaseTokens,
		func(ctx context.Context, req *protomux.Request) error {
			var params PurchaseTokensParams
			if err := decode(req.Params, &params); err != nil {
				return err
			}
			return r.PurchaseTokens(ctx, req.Caller, params.AgreementID, params.TokenAmount,
				params.PurchaseID)
		})

	e.mux.Handle(protomux.TargetRegistry, OpRepayPledge,
		func(ctx context.Context, req *protomux.Request) error {
			var params RepayPledgeParams
			if err := decode(req.Params, &params); err != nil {
				return err
			}
			return r.RepayPledge(ctx, req.Caller, params.AgreementID, params.Amount)
		})

	e.mux.Handle(protomux.TargetRegistry, OpSetSpreadRate,
		func(ctx context.Context, req *protomux.Request) error {
			var params SetRateParams
			if err := decode(req.Params, &params); err != nil {
				return err
			}
			return r.SetSpreadRate(ctx, req.Caller, params.Rate)
		})

	e.mux.Handle(protomux.TargetRegistry, OpWithdrawRevenue,
		func(ctx context.Context, req *protomux.Request) error {
			var params WithdrawRevenueParams
			if err := decode(req.Params, &params); err != nil {
				return err
			}
			return r.WithdrawRevenue(ctx, req.Caller, params.To, params.Amount)
		})

	e.mux.Handle(protomux.TargetRegistry, OpPause,
		func(ctx context.Context, req *protomux.Request) error {
			return r.Pause(ctx, req.Caller)
		})

	e.mux.Handle(protomux.TargetRegistry, OpUnpause,
		func(ctx context.Context, req *protomux.Request) error {
			return r.Unpause(ctx, req.Caller)
		})

	e.mux.Handle(protomux.TargetRegistry, OpGrantRole,
		func(ctx context.Context, req *protomux.Request) error {
			var params RoleParams
			if err := decode(req.Params, &params); err != nil {
				return err
			}
			role, err := decodeRole(params.Role)
			if err != nil {
				return err
			}
			return r.GrantRole(ctx, req.Caller, params.Target, role)
		})

	e.mux.Handle(protomux.TargetRegistry, OpRevokeRole,
		func(ctx context.Context, req *protomux.Request) error {
			var params RoleParams
			if err := decode(req.Params, &params); err != nil {
				return err
			}
			role, err := decodeRole(params.Role)
			if err != nil {
				return err
			}
			return r.RevokeRole(ctx, req.Caller, params.Target, role)
		})
}
