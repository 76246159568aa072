package generators

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/iqbalbaharum/go-pool-sniper/internal/types"
	"github.com/iqbalbaharum/go-pool-sniper/internal/utils"
	pb "github.com/iqbalbaharum/solana-protos/pb"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
)

var kacp = keepalive.ClientParameters{
	Time:                10 * time.Minute,
	Timeout:             20 * time.Second,
	PermitWithoutStream: true,
}

// MempoolTxn is a decoded geyser transaction update.
type MempoolTxn struct {
	Source               string                 `json:"source"`
	Signature            string                 `json:"signature"`
	AccountKeys          []string               `json:"accountKeys"`
	RecentBlockhash      string                 `json:"recentBlockhash"`
	Instructions         []TxInstruction        `json:"instructions"`
	InnerInstructions    []*pb.InnerInstruction `json:"innerInstructions"`
	AddressTableLookups  []TxAddressTableLookup `json:"addressTableLookups"`
	PreTokenBalances     []types.TxTokenBalance `json:"preTokenBalances"`
	PostTokenBalances    []types.TxTokenBalance `json:"postTokenBalances"`
	ComputeUnitsConsumed uint64                 `json:"computeUnitsConsumed"`
	Slot                 uint64                 `json:"slot"`
	Error                string                 `json:"error"`
}

type TxInstruction struct {
	ProgramIdIndex uint32  `json:"programIdIndex"`
	Accounts       []uint8 `json:"accounts"`
	Data           []byte  `json:"data"`
}

type TxAddressTableLookup struct {
	AccountKey      string  `json:"accountKey"`
	WritableIndexes []uint8 `json:"writableIndexes"`
	ReadonlyIndexes []uint8 `json:"readonlyIndexes"`
}

type GeyserResponse struct {
	MempoolTxns MempoolTxn `json:"mempoolTxns"`
}

type GrpcClient struct {
	conn   *grpc.ClientConn
	client pb.GeyserClient
	logger *zap.Logger
}

func GrpcConnect(address string, plaintext bool, logger *zap.Logger) (*GrpcClient, error) {
	var opts []grpc.DialOption
	if plaintext {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	} else {
		pool, _ := x509.SystemCertPool()
		creds := credentials.NewClientTLSFromCert(pool, "")
		opts = append(opts, grpc.WithTransportCredentials(creds))
	}

	opts = append(opts, grpc.WithKeepaliveParams(kacp))
	opts = append(opts, grpc.WithInitialWindowSize(100<<20))
	opts = append(opts, grpc.WithInitialConnWindowSize(100<<20))
	opts = append(opts, grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(1<<30)))

	logger.Info("connecting geyser grpc", zap.String("address", address))
	conn, err := grpc.NewClient(address, opts...)
	if err != nil {
		return nil, err
	}

	client := pb.NewGeyserClient(conn)
	return &GrpcClient{conn, client, logger}, nil
}

func (g *GrpcClient) CloseConnection() error {
	if g.conn != nil {
		return g.conn.Close()
	}
	return nil
}

// CommitmentLevel selects how settled a streamed transaction must be.
type CommitmentLevel = pb.CommitmentLevel

var (
	CommitmentProcessed = pb.CommitmentLevel_PROCESSED
	CommitmentConfirmed = pb.CommitmentLevel_CONFIRMED
)

// GrpcSubscribeByAddresses streams transaction updates touching any of
// accountInclude into txChannel until the stream breaks or ctx ends. The
// caller owns txChannel; it stays open so a reconnect can resume feeding it.
func (g *GrpcClient) GrpcSubscribeByAddresses(ctx context.Context, sourceName string, grpcToken string, commitment CommitmentLevel, accountInclude []string, accountExclude []string, txChannel chan<- GeyserResponse) error {
	if g.client == nil {
		return errors.New("grpc not connected")
	}

	subscription := pb.SubscribeRequest{
		Slots:        make(map[string]*pb.SubscribeRequestFilterSlots),
		Blocks:       make(map[string]*pb.SubscribeRequestFilterBlocks),
		BlocksMeta:   make(map[string]*pb.SubscribeRequestFilterBlocksMeta),
		Accounts:     make(map[string]*pb.SubscribeRequestFilterAccounts),
		Transactions: make(map[string]*pb.SubscribeRequestFilterTransactions),
		Entry:        make(map[string]*pb.SubscribeRequestFilterEntry),
		Commitment:   commitment.Enum(),
	}

	if len(accountInclude) > 0 {
		subscription.Transactions[accountInclude[0]] = &pb.SubscribeRequestFilterTransactions{
			Vote:           utils.BoolPointer(false),
			Failed:         utils.BoolPointer(false),
			AccountInclude: accountInclude,
			AccountExclude: accountExclude,
		}
	}

	if grpcToken != "" {
		md := metadata.New(map[string]string{"x-token": grpcToken})
		ctx = metadata.NewOutgoingContext(ctx, md)
	}

	stream, err := g.client.Subscribe(ctx,
		grpc.MaxCallRecvMsgSize(100<<20),
	)
	if err != nil {
		return err
	}

	if err := stream.Send(&subscription); err != nil {
		return err
	}

	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			g.logger.Error("geyser stream broke", zap.Error(err))
			return err
		}

		tx := resp.GetTransaction()
		if tx == nil {
			continue
		}

		message := tx.Transaction.Transaction.Message
		meta := tx.Transaction.Meta

		var errorString string
		if meta.Err != nil {
			if len(meta.Err.Err) > 9 {
				errorString = fmt.Sprintf("0x%x", meta.Err.Err[9])
			} else {
				errorString = "ERR"
			}
		}

		var computeUnits uint64
		if meta.ComputeUnitsConsumed != nil {
			computeUnits = *meta.ComputeUnitsConsumed
		}

		txChannel <- GeyserResponse{
			MempoolTxns: MempoolTxn{
				Source:               sourceName,
				Signature:            base58.Encode(tx.Transaction.Signature),
				AccountKeys:          convertAccountKeys(message.AccountKeys),
				RecentBlockhash:      base58.Encode(message.RecentBlockhash),
				Instructions:         convertInstructions(message.Instructions),
				AddressTableLookups:  convertAddressTableLookups(message.AddressTableLookups),
				PreTokenBalances:     convertTokenBalances(meta.PreTokenBalances),
				PostTokenBalances:    convertTokenBalances(meta.PostTokenBalances),
				ComputeUnitsConsumed: computeUnits,
				Slot:                 tx.Slot,
				Error:                errorString,
			},
		}
	}
}

func convertAccountKeys(accountKeys [][]byte) []string {
	encodedKeys := make([]string, len(accountKeys))
	for i, key := range accountKeys {
		encodedKeys[i] = base58.Encode(key)
	}
	return encodedKeys
}

func convertInstructions(instructions []*pb.CompiledInstruction) []TxInstruction {
	convertedInstructions := make([]TxInstruction, len(instructions))
	for i, instr := range instructions {
		convertedInstructions[i] = TxInstruction{
			ProgramIdIndex: instr.ProgramIdIndex,
			Accounts:       instr.Accounts,
			Data:           instr.Data,
		}
	}
	return convertedInstructions
}

func convertAddressTableLookups(lookups []*pb.MessageAddressTableLookup) []TxAddressTableLookup {
	convertedLookups := make([]TxAddressTableLookup, len(lookups))
	for i, lookup := range lookups {
		convertedLookups[i] = TxAddressTableLookup{
			AccountKey:      base58.Encode(lookup.AccountKey),
			WritableIndexes: lookup.WritableIndexes,
			ReadonlyIndexes: lookup.ReadonlyIndexes,
		}
	}
	return convertedLookups
}

func convertTokenBalances(tokenBalances []*pb.TokenBalance) []types.TxTokenBalance {
	convertedBalances := make([]types.TxTokenBalance, len(tokenBalances))
	for i, balance := range tokenBalances {
		convertedBalances[i] = types.TxTokenBalance{
			Mint:    balance.Mint,
			Owner:   balance.Owner,
			Amount:  balance.UiTokenAmount.Amount,
			Decimal: balance.UiTokenAmount.Decimals,
		}
	}
	return convertedBalances
}

func (g *GrpcClient) GetBlockhash() (solana.Hash, error) {
	if g.client == nil {
		return solana.Hash{}, errors.New("grpc not connected")
	}

	ctx := context.Background()
	block, err := g.client.GetLatestBlockhash(ctx, &pb.GetLatestBlockhashRequest{
		Commitment: pb.CommitmentLevel_CONFIRMED.Enum(),
	})
	if err != nil {
		return solana.Hash{}, err
	}

	return solana.HashFromBase58(block.Blockhash)
}
